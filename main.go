package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amirb2607/PortfolioHub/internal/handler"
	"github.com/amirb2607/PortfolioHub/internal/portfolio"
	"github.com/amirb2607/PortfolioHub/internal/reconciler"
	"github.com/amirb2607/PortfolioHub/internal/store"
	"github.com/amirb2607/PortfolioHub/internal/stream"
	"github.com/amirb2607/PortfolioHub/pkg/auth"
	"github.com/amirb2607/PortfolioHub/pkg/config"
	"github.com/amirb2607/PortfolioHub/pkg/database"
	"github.com/amirb2607/PortfolioHub/pkg/events"
	"github.com/amirb2607/PortfolioHub/pkg/logger"
	"github.com/amirb2607/PortfolioHub/pkg/metrics"
	"github.com/amirb2607/PortfolioHub/pkg/middleware"
	"github.com/amirb2607/PortfolioHub/pkg/response"
	"github.com/amirb2607/PortfolioHub/pkg/telemetry"
	"github.com/amirb2607/PortfolioHub/pkg/twelvedata"
)

const serviceName = "portfolio-engine"

func main() {
	logger.Init(serviceName, "info", os.Getenv("PRETTY_LOGS") == "true")
	logger.Info().Msg("Starting Portfolio Engine")

	cfg, err := config.Load("config")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	provider, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		CollectorURL: cfg.Telemetry.CollectorURL,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error shutting down telemetry")
		}
	}()

	// Database
	pool, err := database.Connect(ctx, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}, 60*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("host", cfg.Database.Host).Msg("Connected to database")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info().Str("host", cfg.Redis.Host).Msg("Connected to redis")

	// Kafka
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publisher enabled")
	}
	defer publisher.Close()

	// Quote client
	var quotes twelvedata.QuoteClient
	if cfg.Quotes.APIKey == "" {
		logger.Warn().Msg("Using mock quote client (no API key configured)")
		quotes = twelvedata.NewMockClient()
	} else {
		quotes = twelvedata.NewClient(&twelvedata.Config{
			APIKey:  cfg.Quotes.APIKey,
			BaseURL: cfg.Quotes.BaseURL,
			Timeout: cfg.Quotes.Timeout,
		})
		logger.Info().Str("base_url", cfg.Quotes.BaseURL).Msg("Connected to quote API")
	}

	// Engine
	manager := reconciler.NewManager(
		ctx,
		store.NewPostgresStore(pool),
		store.NewRedisNotifier(redisClient),
		quotes,
		publisher,
		refreshPolicy(cfg),
	)
	defer manager.StopAll()

	hub := stream.NewHub(manager)
	go hub.Run()
	defer hub.Stop()

	jwtManager := auth.NewJWTManager(&auth.Config{Secret: cfg.Auth.JWTSecret})
	h := handler.NewHandler(manager)

	app := fiber.New(fiber.Config{
		AppName:      "PortfolioHub Engine",
		ErrorHandler: response.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(metrics.Middleware(metrics.Config{
		ServiceName: serviceName,
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": serviceName,
		})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api/v1", middleware.Auth(jwtManager))
	h.RegisterRoutes(api)

	// WebSocket endpoint streaming portfolio snapshots
	app.Use("/ws", middleware.Auth(jwtManager), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("ws_user_id", middleware.GetUserID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("ws_user_id").(string)
		if userID == "" {
			c.Close()
			return
		}
		client := stream.NewClient(uuid.New().String(), userID, c, hub)
		hub.Register(client)

		go client.WritePump()
		client.ReadPump()
	}))

	go func() {
		addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := app.Listen(addr); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Portfolio Engine")
	if err := app.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}
}

// refreshPolicy builds the staleness policy from configuration,
// falling back to US market defaults on bad values.
func refreshPolicy(cfg *config.Config) portfolio.RefreshPolicy {
	policy := portfolio.DefaultRefreshPolicy()

	if cfg.Refresh.StaleAfter > 0 {
		policy.StaleAfter = cfg.Refresh.StaleAfter
	}
	if m, ok := parseClock(cfg.Refresh.MarketOpen); ok {
		policy.OpenMinute = m
	}
	if m, ok := parseClock(cfg.Refresh.MarketClose); ok {
		policy.CloseMinute = m
	}
	if cfg.Refresh.Location != "" {
		if loc, err := time.LoadLocation(cfg.Refresh.Location); err == nil {
			policy.Location = loc
		} else {
			logger.Warn().Str("location", cfg.Refresh.Location).Msg("Unknown timezone, using default")
		}
	}
	return policy
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
