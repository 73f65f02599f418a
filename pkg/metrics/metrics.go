package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the portfolio engine: HTTP surface, quote API
// calls, reconciliation passes, and Go runtime collectors.

var (
	registry = prometheus.NewRegistry()

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	// Quote client metrics
	quoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_fetches_total",
			Help: "Total number of quote API fetches by outcome",
		},
		[]string{"service", "outcome"}, // ok, invalid_symbol, network_error
	)

	quoteFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_fetch_duration_seconds",
			Help:    "Quote API fetch duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	// Reconciliation metrics
	reconcilePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_passes_total",
			Help: "Total number of reconciliation passes by result",
		},
		[]string{"service", "result"}, // reconciled, error, cancelled
	)

	reconcileHoldingsRefreshed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_holdings_refreshed_total",
			Help: "Total number of holdings whose price was refreshed",
		},
		[]string{"service"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_pass_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	// Session metrics
	activeSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of user sessions with a live reconciler",
		},
		[]string{"service"},
	)
)

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(httpRequestsTotal)
	registry.MustRegister(httpRequestDuration)
	registry.MustRegister(quoteFetches)
	registry.MustRegister(quoteFetchDuration)
	registry.MustRegister(reconcilePasses)
	registry.MustRegister(reconcileHoldingsRefreshed)
	registry.MustRegister(reconcileDuration)
	registry.MustRegister(activeSessions)
}

// Registry returns the prometheus registry
func Registry() *prometheus.Registry {
	return registry
}

// Handler returns a Fiber handler for the /metrics endpoint
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// Config holds metrics middleware configuration
type Config struct {
	ServiceName string
	SkipPaths   []string
}

// Middleware returns Fiber middleware that records HTTP metrics
func Middleware(cfg Config) fiber.Handler {
	skipPaths := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *fiber.Ctx) error {
		if skipPaths[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := c.Route().Path

		httpRequestsTotal.WithLabelValues(cfg.ServiceName, method, path, status).Inc()
		httpRequestDuration.WithLabelValues(cfg.ServiceName, method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordQuoteFetch records one quote API call and its outcome.
func RecordQuoteFetch(service, outcome string, duration time.Duration) {
	quoteFetches.WithLabelValues(service, outcome).Inc()
	quoteFetchDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordReconcilePass records the result of one reconciliation pass.
func RecordReconcilePass(service, result string, refreshed int, duration time.Duration) {
	reconcilePasses.WithLabelValues(service, result).Inc()
	reconcileHoldingsRefreshed.WithLabelValues(service).Add(float64(refreshed))
	reconcileDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// SetActiveSessions sets the number of live reconciler sessions.
func SetActiveSessions(service string, count int) {
	activeSessions.WithLabelValues(service).Set(float64(count))
}
