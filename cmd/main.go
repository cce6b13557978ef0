package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"RiskAnalyticsService/api"
	"RiskAnalyticsService/internal/behavior"
	"RiskAnalyticsService/internal/config"
	"RiskAnalyticsService/internal/market"
	"RiskAnalyticsService/internal/metrics"
	"RiskAnalyticsService/internal/risk"
	"RiskAnalyticsService/internal/service"
	"RiskAnalyticsService/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal, stopping services")
		cancel() // Cancel the context to stop all services
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// 1. Volatility engine owns the price window; the feed is its only writer.
	engine := market.NewEngineWithConfig(cfg.Market.StartingPrice, market.EngineConfig{
		WindowCapacity:   market.DefaultWindowCapacity,
		VolatilityWindow: time.Duration(cfg.Market.VolatilityWindowMinutes) * time.Minute,
	})

	feedConfig := market.DefaultFeedConfig()
	feedConfig.Symbol = cfg.Market.Symbol
	feedConfig.Interval = cfg.Market.PriceUpdateInterval
	feedConfig.VolatilityFactor = cfg.Market.VolatilityFactor
	feed := market.NewFeedWithConfig(engine, feedConfig)

	// 2. Per-user behavior tracking and the composite risk scorer.
	tracker := behavior.NewTracker()
	analyzer := risk.NewAnalyzer(engine, tracker, risk.Thresholds{
		HighVolatility:    cfg.Risk.HighVolatilityThreshold,
		ExtremeVolatility: cfg.Risk.ExtremeVolatilityThreshold,
	}, logger)

	// 3. Stream consumer: reads orders, scores them, persists verdicts.
	store := stream.NewResultStore(rdb)
	consumer := stream.NewConsumer(rdb, analyzer, store, stream.ConsumerConfig{
		StreamName:    cfg.Stream.StreamName,
		ConsumerGroup: cfg.Stream.ConsumerGroup,
		ConsumerName:  cfg.Stream.ConsumerName,
		BatchSize:     cfg.Stream.BatchSize,
		BlockTimeout:  time.Second,
		RetryBackoff:  time.Second,
	}, logger)

	publisher := stream.NewPublisher(rdb, cfg.Stream.StreamName, logger)

	feed.Start(ctx)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("failed to start stream consumer: %v", err)
	}

	go sampleFeedMetrics(ctx, engine)

	// 4. Read-side service and HTTP API.
	analytics := service.NewAnalyticsService(engine, store, consumer, tracker, cfg.Market.Symbol)
	apiHandler := api.NewAPIHandler(analytics, analyzer, publisher, logger)

	logger.Info("risk analytics service starting",
		"port", cfg.HTTPPort,
		"stream", cfg.Stream.StreamName,
		"group", cfg.Stream.ConsumerGroup)
	fmt.Printf("Endpoints:\n")
	fmt.Printf("  GET  /health\n")
	fmt.Printf("  GET  /metrics\n")
	fmt.Printf("  GET  /volatility/btc\n")
	fmt.Printf("  GET  /analysis/:orderId\n")
	fmt.Printf("  GET  /pending\n")
	fmt.Printf("  GET  /users/:userId/profile\n")
	fmt.Printf("  POST /analyze\n")
	fmt.Printf("  POST /orders\n")
	fmt.Printf("Press Ctrl+C to gracefully shutdown\n")

	log.Fatal(apiHandler.StartServer(cfg.HTTPPort))
}

// sampleFeedMetrics exports the feed state as Prometheus gauges.
func sampleFeedMetrics(ctx context.Context, engine *market.Engine) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.CurrentPrice.Set(engine.CurrentPrice())
			metrics.CurrentVolatility.Set(engine.CurrentVolatility())
		case <-ctx.Done():
			return
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
