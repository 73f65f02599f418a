package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/amirb2607/PortfolioHub/pkg/errors"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(&Config{APIKey: "test-key"})

	if client.baseURL != "https://api.twelvedata.com" {
		t.Errorf("baseURL = %v, want https://api.twelvedata.com", client.baseURL)
	}
}

func TestClient_GetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %v", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("apikey = %v, want test-key", r.URL.Query().Get("apikey"))
		}

		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc","close":"190.50","datetime":"2025-06-13"}`))
		case "ZZZZ":
			w.Write([]byte(`{"code":400,"message":"symbol not found","status":"error"}`))
		case "NONAME":
			w.Write([]byte(`{"close":"42.00","datetime":"2025-06-13"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	ctx := context.Background()

	t.Run("valid symbol", func(t *testing.T) {
		quote, err := client.GetQuote(ctx, "AAPL")
		if err != nil {
			t.Fatalf("GetQuote failed: %v", err)
		}
		if quote.Symbol != "AAPL" {
			t.Errorf("quote.Symbol = %v, want AAPL", quote.Symbol)
		}
		if quote.Name != "Apple Inc" {
			t.Errorf("quote.Name = %v, want Apple Inc", quote.Name)
		}
		if !quote.Close.Equal(decimal.RequireFromString("190.50")) {
			t.Errorf("quote.Close = %v, want 190.50", quote.Close)
		}
	})

	t.Run("invalid symbol", func(t *testing.T) {
		_, err := client.GetQuote(ctx, "ZZZZ")
		if !errors.Is(err, apperrors.ErrInvalidSymbol) {
			t.Errorf("expected ErrInvalidSymbol, got %v", err)
		}
	})

	t.Run("missing symbol and name", func(t *testing.T) {
		_, err := client.GetQuote(ctx, "NONAME")
		if !errors.Is(err, apperrors.ErrInvalidSymbol) {
			t.Errorf("expected ErrInvalidSymbol, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.GetQuote(ctx, "BOOM")
		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Errorf("expected ErrQuoteUnavailable, got %v", err)
		}
	})
}

func TestClient_GetQuote_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := NewClient(&Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.GetQuote(context.Background(), "AAPL")
	if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
		t.Errorf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestMockClient_GetQuote(t *testing.T) {
	client := NewMockClient()
	ctx := context.Background()

	quote, err := client.GetQuote(ctx, "aapl")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("quote.Symbol = %v, want AAPL", quote.Symbol)
	}

	_, err = client.GetQuote(ctx, "NOPE")
	if !errors.Is(err, apperrors.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestMockClient_SetQuote(t *testing.T) {
	client := NewMockClient()
	client.SetQuote("TSLA", "Tesla Inc", decimal.NewFromInt(250))

	quote, err := client.GetQuote(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !quote.Close.Equal(decimal.NewFromInt(250)) {
		t.Errorf("quote.Close = %v, want 250", quote.Close)
	}
}
