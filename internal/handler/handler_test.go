package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/internal/reconciler"
	"github.com/amirb2607/PortfolioHub/internal/store"
	"github.com/amirb2607/PortfolioHub/pkg/logger"
	"github.com/amirb2607/PortfolioHub/pkg/response"
	"github.com/amirb2607/PortfolioHub/pkg/twelvedata"
)

func init() {
	logger.Init("handler-test", "error", false)
}

func newTestApp(t *testing.T, userID string) (*fiber.App, *reconciler.Manager) {
	t.Helper()

	manager := reconciler.NewManager(
		context.Background(),
		store.NewMemoryStore(),
		store.NewMemoryNotifier(),
		twelvedata.NewMockClient(),
		nil,
		portfolio.DefaultRefreshPolicy(),
	)
	t.Cleanup(manager.StopAll)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	NewHandler(manager).RegisterRoutes(app.Group("/api/v1"))

	return app, manager
}

// waitForHoldings polls the portfolio endpoint until it reports the
// expected holding count, riding out in-flight reconciliation passes.
func waitForHoldings(t *testing.T, app *fiber.App, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio", nil), 5000)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var envelope struct {
			Data PortfolioResponse `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(envelope.Data.Holdings) == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d holdings", want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAddHolding(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	body := `{"symbol":"aapl","quantity":"10","price":"100"}`
	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var envelope struct {
		Data HoldingResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Data.Symbol != "AAPL" {
		t.Errorf("symbol = %v, want AAPL", envelope.Data.Symbol)
	}
	if envelope.Data.Name != "Apple Inc" {
		t.Errorf("name = %v, want Apple Inc", envelope.Data.Name)
	}
}

func TestAddHolding_Validation(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown symbol", `{"symbol":"NOPE","quantity":"1","price":"10"}`, fiber.StatusNotFound},
		{"zero quantity", `{"symbol":"AAPL","quantity":"0","price":"10"}`, fiber.StatusBadRequest},
		{"bad quantity", `{"symbol":"AAPL","quantity":"ten","price":"10"}`, fiber.StatusBadRequest},
		{"negative price", `{"symbol":"AAPL","quantity":"1","price":"-10"}`, fiber.StatusBadRequest},
		{"malformed body", `{`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, 5000)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestGetPortfolio(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	for _, body := range []string{
		`{"symbol":"AAPL","quantity":"10","price":"100"}`,
		`{"symbol":"AAPL","quantity":"5","price":"130"}`,
	} {
		req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if _, err := app.Test(req, 5000); err != nil {
			t.Fatalf("seed request failed: %v", err)
		}
		waitForHoldings(t, app, 1)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Data PortfolioResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if envelope.Data.Summary.Holdings != 1 {
		t.Fatalf("holdings = %d, want 1", envelope.Data.Summary.Holdings)
	}
	h := envelope.Data.Holdings[0]
	if !decimal.RequireFromString(h.Quantity).Equal(decimal.NewFromInt(15)) {
		t.Errorf("quantity = %v, want 15", h.Quantity)
	}
	if !decimal.RequireFromString(h.AveragePrice).Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("averagePrice = %v, want 110.00", h.AveragePrice)
	}
}

func TestRemoveHolding(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	req := httptest.NewRequest("POST", "/api/v1/portfolio/holdings",
		strings.NewReader(`{"symbol":"AAPL","quantity":"10","price":"100"}`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req, 5000); err != nil {
		t.Fatalf("seed request failed: %v", err)
	}
	waitForHoldings(t, app, 1)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/portfolio/holdings/AAPL", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/v1/portfolio/holdings/AAPL", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestRefresh(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/portfolio/refresh", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
}

func TestUnauthenticated(t *testing.T) {
	app, _ := newTestApp(t, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSignOut(t *testing.T) {
	app, _ := newTestApp(t, "user-1")

	// Establish a session first
	if _, err := app.Test(httptest.NewRequest("GET", "/api/v1/portfolio", nil), 5000); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/session/signout", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	// Ensure the session is gone but the API still works afterwards
	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/portfolio", nil), 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status after signout = %d, want 200", resp.StatusCode)
	}
}
