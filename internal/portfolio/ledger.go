package portfolio

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/pkg/errors"
)

// Ledger owns the in-memory set of one user's holdings. Buys recompute
// the weighted-average cost basis; removals are full liquidations.
// Durability to the store is the reconciler's job, not the ledger's.
type Ledger struct {
	mu       sync.RWMutex
	holdings map[string]*Holding
	order    []string // insertion order of symbols
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		holdings: make(map[string]*Holding),
	}
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// AddBuy applies a buy of quantity units at price. A first buy creates
// the holding; subsequent buys fold into the weighted average rounded
// to 2 decimal places. Returns a copy of the resulting holding.
func (l *Ledger) AddBuy(symbol, name string, quantity, price decimal.Decimal, purchaseDate time.Time) (*Holding, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, errors.ErrValidation.WithDetails("symbol must not be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrValidation.WithDetails("quantity must be positive")
	}
	if price.IsNegative() {
		return nil, errors.ErrValidation.WithDetails("price must not be negative")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.holdings[symbol]
	if !ok {
		h := &Holding{
			Symbol:       symbol,
			Name:         name,
			Quantity:     quantity,
			AveragePrice: price.Round(2),
			PurchaseDate: purchaseDate,
		}
		l.holdings[symbol] = h
		l.order = append(l.order, symbol)
		copied := *h
		return &copied, nil
	}

	newQty := existing.Quantity.Add(quantity)
	oldCost := existing.Quantity.Mul(existing.AveragePrice)
	newCost := quantity.Mul(price)
	existing.Quantity = newQty
	existing.AveragePrice = oldCost.Add(newCost).Div(newQty).Round(2)
	existing.PurchaseDate = purchaseDate
	if name != "" {
		existing.Name = name
	}

	copied := *existing
	return &copied, nil
}

// ApplyPriceUpdate sets the current price and refresh timestamp on the
// matching holding. Returns ErrHoldingNotFound if the symbol is absent.
func (l *Ledger) ApplyPriceUpdate(symbol string, price decimal.Decimal, asOf time.Time) error {
	symbol = NormalizeSymbol(symbol)

	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holdings[symbol]
	if !ok {
		return errors.ErrHoldingNotFound.WithDetails("symbol: " + symbol)
	}
	h.CurrentPrice = &price
	h.LastUpdate = &asOf
	return nil
}

// Remove deletes the holding entirely. Removing an absent symbol is a
// no-op.
func (l *Ledger) Remove(symbol string) {
	symbol = NormalizeSymbol(symbol)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.holdings[symbol]; !ok {
		return
	}
	delete(l.holdings, symbol)
	for i, s := range l.order {
		if s == symbol {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Replace swaps the ledger's contents for the given holdings, keeping
// their order. Used when a remote snapshot supersedes local state.
func (l *Ledger) Replace(holdings []Holding) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holdings = make(map[string]*Holding, len(holdings))
	l.order = l.order[:0]
	for i := range holdings {
		h := holdings[i]
		h.Symbol = NormalizeSymbol(h.Symbol)
		if _, ok := l.holdings[h.Symbol]; ok {
			continue
		}
		l.holdings[h.Symbol] = &h
		l.order = append(l.order, h.Symbol)
	}
}

// Get returns a copy of the holding for symbol, or nil if absent.
func (l *Ledger) Get(symbol string) *Holding {
	symbol = NormalizeSymbol(symbol)

	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holdings[symbol]
	if !ok {
		return nil
	}
	copied := *h
	return &copied
}

// Snapshot returns copies of all holdings in insertion order.
func (l *Ledger) Snapshot() []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Holding, 0, len(l.order))
	for _, symbol := range l.order {
		out = append(out, *l.holdings[symbol])
	}
	return out
}

// Len returns the number of holdings.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.holdings)
}
