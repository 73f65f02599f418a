package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{ServiceName: "test-service"}))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestMiddlewareSkipPaths(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{ServiceName: "test-service", SkipPaths: []string{"/health"}}))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	RecordQuoteFetch("test-service", "ok", 50*time.Millisecond)
	RecordReconcilePass("test-service", "reconciled", 3, 200*time.Millisecond)
	SetActiveSessions("test-service", 2)

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestRegistryNotNil(t *testing.T) {
	if Registry() == nil {
		t.Fatal("expected non-nil registry")
	}
}
