package twelvedata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/pkg/errors"
)

// MockClient is an in-memory quote source for local development and tests
type MockClient struct {
	mu     sync.RWMutex
	quotes map[string]*Quote
}

// NewMockClient creates a mock client seeded with a few common symbols
func NewMockClient() *MockClient {
	c := &MockClient{
		quotes: make(map[string]*Quote),
	}
	c.SetQuote("AAPL", "Apple Inc", decimal.NewFromFloat(190.50))
	c.SetQuote("GOOG", "Alphabet Inc", decimal.NewFromFloat(142.30))
	c.SetQuote("MSFT", "Microsoft Corporation", decimal.NewFromFloat(410.25))
	return c
}

// SetQuote registers or replaces the quote for a symbol
func (c *MockClient) SetQuote(symbol, name string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[strings.ToUpper(symbol)] = &Quote{
		Symbol: strings.ToUpper(symbol),
		Name:   name,
		Close:  price,
		Date:   time.Now().UTC(),
	}
}

// GetQuote returns the registered quote or ErrInvalidSymbol
func (c *MockClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quote, ok := c.quotes[strings.ToUpper(symbol)]
	if !ok {
		return nil, errors.ErrInvalidSymbol.WithDetails("unknown symbol: " + symbol)
	}
	copied := *quote
	return &copied, nil
}
