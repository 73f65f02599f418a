package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/internal/reconciler"
)

// AddHoldingRequest is the body for POST /portfolio/holdings. Quantity
// and price arrive as strings to keep decimal precision intact.
type AddHoldingRequest struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// HoldingResponse is one holding as exposed over the API
type HoldingResponse struct {
	Symbol       string     `json:"symbol"`
	Name         string     `json:"name"`
	Quantity     string     `json:"quantity"`
	AveragePrice string     `json:"average_price"`
	CurrentPrice string     `json:"current_price,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
	PurchaseDate time.Time  `json:"purchase_date"`
	GainPercent  string     `json:"gain_percent"`
	GainValue    string     `json:"gain_value"`
	Allocation   string     `json:"allocation"`
}

// SummaryResponse is the portfolio-level valuation
type SummaryResponse struct {
	TotalCostBasis   string `json:"total_cost_basis"`
	TotalMarketValue string `json:"total_market_value"`
	PercentGain      string `json:"percent_gain"`
	TotalQuantity    string `json:"total_quantity"`
	Holdings         int    `json:"holdings"`
}

// PortfolioResponse is the full portfolio view
type PortfolioResponse struct {
	State    string            `json:"state"`
	Summary  SummaryResponse   `json:"summary"`
	Holdings []HoldingResponse `json:"holdings"`
	Error    string            `json:"error,omitempty"`
	AsOf     time.Time         `json:"as_of"`
}

// toHoldingResponse renders one holding. totalValue is the portfolio's
// total market value used for the allocation share; pass zero to omit.
func toHoldingResponse(h *portfolio.Holding, totalValue decimal.Decimal) HoldingResponse {
	resp := HoldingResponse{
		Symbol:       h.Symbol,
		Name:         h.Name,
		Quantity:     h.Quantity.String(),
		AveragePrice: h.AveragePrice.String(),
		LastUpdate:   h.LastUpdate,
		PurchaseDate: h.PurchaseDate,
		GainPercent:  portfolio.HoldingGainPercent(h).Round(2).String(),
		GainValue:    portfolio.HoldingGainValue(h).Round(2).String(),
	}
	if h.CurrentPrice != nil {
		resp.CurrentPrice = h.CurrentPrice.String()
	}
	allocation := decimal.Zero
	if totalValue.IsPositive() {
		allocation = h.Quantity.Mul(h.MarketPrice()).Div(totalValue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	resp.Allocation = allocation.String()
	return resp
}

func toPortfolioResponse(snap reconciler.Snapshot) PortfolioResponse {
	holdings := make([]HoldingResponse, 0, len(snap.Holdings))
	for i := range snap.Holdings {
		holdings = append(holdings, toHoldingResponse(&snap.Holdings[i], snap.Summary.TotalMarketValue))
	}
	return PortfolioResponse{
		State: string(snap.State),
		Summary: SummaryResponse{
			TotalCostBasis:   snap.Summary.TotalCostBasis.Round(2).String(),
			TotalMarketValue: snap.Summary.TotalMarketValue.Round(2).String(),
			PercentGain:      snap.Summary.PercentGain.Round(2).String(),
			TotalQuantity:    snap.Summary.TotalQuantity.String(),
			Holdings:         snap.Summary.Holdings,
		},
		Holdings: holdings,
		Error:    snap.Error,
		AsOf:     snap.AsOf,
	}
}
