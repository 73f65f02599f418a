package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/pkg/errors"
	"github.com/amirb2607/PortfolioHub/pkg/metrics"
	"github.com/amirb2607/PortfolioHub/pkg/telemetry"
)

// Config holds Twelve Data API configuration
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is the Twelve Data API client
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Twelve Data API client
func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		config: cfg,
		httpClient: telemetry.WrapHTTPClient(&http.Client{
			Timeout: timeout,
		}),
		baseURL: baseURL,
	}
}

// Quote is a single end-of-day quote for a symbol
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Close  decimal.Decimal `json:"close"`
	Date   time.Time       `json:"date"`
}

// quoteResponse is the raw Twelve Data quote payload. Prices arrive as
// strings and the error shape shares the same endpoint.
type quoteResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Close    string `json:"close"`
	Datetime string `json:"datetime"`

	// Error fields, present when the API rejects the request
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GetQuote fetches the latest quote for a symbol. An unknown symbol
// yields errors.ErrInvalidSymbol; transport and decode failures yield
// errors.ErrQuoteUnavailable.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	start := time.Now()

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("apikey", c.config.APIKey)
	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.ErrQuoteUnavailable.WithError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordQuoteFetch("twelvedata", "network_error", time.Since(start))
		return nil, errors.ErrQuoteUnavailable.WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		metrics.RecordQuoteFetch("twelvedata", "network_error", time.Since(start))
		return nil, errors.ErrQuoteUnavailable.WithDetails(
			fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
	}

	var raw quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.RecordQuoteFetch("twelvedata", "network_error", time.Since(start))
		return nil, errors.ErrQuoteUnavailable.WithError(err)
	}

	// Twelve Data reports unknown symbols with HTTP 200 and an error body
	if raw.Status == "error" || raw.Code == 400 || raw.Code == 404 {
		metrics.RecordQuoteFetch("twelvedata", "invalid_symbol", time.Since(start))
		return nil, errors.ErrInvalidSymbol.WithDetails(raw.Message)
	}
	if raw.Symbol == "" || raw.Name == "" || raw.Close == "" {
		metrics.RecordQuoteFetch("twelvedata", "invalid_symbol", time.Since(start))
		return nil, errors.ErrInvalidSymbol.WithDetails(fmt.Sprintf("incomplete quote for %s", symbol))
	}

	quote, err := raw.toQuote()
	if err != nil {
		metrics.RecordQuoteFetch("twelvedata", "network_error", time.Since(start))
		return nil, errors.ErrQuoteUnavailable.WithError(err)
	}

	metrics.RecordQuoteFetch("twelvedata", "ok", time.Since(start))
	return quote, nil
}

func (r *quoteResponse) toQuote() (*Quote, error) {
	closePrice, err := decimal.NewFromString(r.Close)
	if err != nil {
		return nil, fmt.Errorf("failed to parse close price %q: %w", r.Close, err)
	}

	date := time.Now().UTC()
	if r.Datetime != "" {
		if parsed, err := time.Parse("2006-01-02", r.Datetime); err == nil {
			date = parsed
		} else if parsed, err := time.Parse("2006-01-02 15:04:05", r.Datetime); err == nil {
			date = parsed
		}
	}

	return &Quote{
		Symbol: r.Symbol,
		Name:   r.Name,
		Close:  closePrice,
		Date:   date,
	}, nil
}
