package twelvedata

import "context"

// QuoteClient defines the interface for fetching quotes
type QuoteClient interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Ensure Client and MockClient implement QuoteClient
var _ QuoteClient = (*Client)(nil)
var _ QuoteClient = (*MockClient)(nil)
