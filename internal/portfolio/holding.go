package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one user's position in one ticker symbol. AveragePrice is
// the quantity-weighted mean of all buys for the symbol. CurrentPrice
// and LastUpdate are nil until the first successful price refresh.
type Holding struct {
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	Quantity     decimal.Decimal  `json:"quantity"`
	AveragePrice decimal.Decimal  `json:"average_price"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	LastUpdate   *time.Time       `json:"last_update,omitempty"`
	PurchaseDate time.Time        `json:"purchase_date"`
}

// Priced reports whether the holding has ever received a market price.
func (h *Holding) Priced() bool {
	return h.CurrentPrice != nil
}

// MarketPrice returns the last known market price, falling back to the
// cost basis when the holding has never been priced.
func (h *Holding) MarketPrice() decimal.Decimal {
	if h.CurrentPrice != nil {
		return *h.CurrentPrice
	}
	return h.AveragePrice
}
