package portfolio

import (
	"github.com/shopspring/decimal"
)

// Summary is the derived valuation of a portfolio snapshot.
type Summary struct {
	TotalCostBasis   decimal.Decimal `json:"total_cost_basis"`
	TotalMarketValue decimal.Decimal `json:"total_market_value"`
	PercentGain      decimal.Decimal `json:"percent_gain"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	Holdings         int             `json:"holdings"`
}

// TotalCostBasis sums quantity times average price across the snapshot.
func TotalCostBasis(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for i := range holdings {
		total = total.Add(holdings[i].Quantity.Mul(holdings[i].AveragePrice))
	}
	return total
}

// TotalMarketValue sums quantity times the last known market price,
// falling back to cost basis for never-priced holdings.
func TotalMarketValue(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for i := range holdings {
		total = total.Add(holdings[i].Quantity.Mul(holdings[i].MarketPrice()))
	}
	return total
}

// PercentGain returns the portfolio-level gain in percent. Zero cost
// basis yields zero, never a division by zero.
func PercentGain(holdings []Holding) decimal.Decimal {
	cost := TotalCostBasis(holdings)
	if cost.IsZero() {
		return decimal.Zero
	}
	value := TotalMarketValue(holdings)
	return value.Sub(cost).Div(cost).Mul(decimal.NewFromInt(100))
}

// HoldingGainPercent returns the per-unit gain of one holding in
// percent. Unpriced holdings and zero cost basis yield zero.
func HoldingGainPercent(h *Holding) decimal.Decimal {
	if h.CurrentPrice == nil || h.AveragePrice.IsZero() {
		return decimal.Zero
	}
	return h.CurrentPrice.Sub(h.AveragePrice).Div(h.AveragePrice).Mul(decimal.NewFromInt(100))
}

// HoldingGainValue returns the absolute gain of one holding in
// dollars, quantity times the price delta. Unpriced holdings yield
// zero.
func HoldingGainValue(h *Holding) decimal.Decimal {
	if h.CurrentPrice == nil {
		return decimal.Zero
	}
	return h.Quantity.Mul(h.CurrentPrice.Sub(h.AveragePrice))
}

// Summarize derives the full valuation summary for a snapshot.
func Summarize(holdings []Holding) Summary {
	qty := decimal.Zero
	for i := range holdings {
		qty = qty.Add(holdings[i].Quantity)
	}
	return Summary{
		TotalCostBasis:   TotalCostBasis(holdings),
		TotalMarketValue: TotalMarketValue(holdings),
		PercentGain:      PercentGain(holdings),
		TotalQuantity:    qty,
		Holdings:         len(holdings),
	}
}
