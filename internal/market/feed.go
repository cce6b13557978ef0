package market

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"RiskAnalyticsService/internal/model"
)

// FeedConfig holds configuration for the simulated price feed
type FeedConfig struct {
	Symbol           string
	Interval         time.Duration
	Drift            float64
	VolatilityFactor float64
	PriceFloor       float64
	JumpProbability  float64
	JumpMultiplier   float64
}

// DefaultFeedConfig returns a sensible default configuration
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Symbol:           "BTC-USD",
		Interval:         time.Second,
		Drift:            0.0001,
		VolatilityFactor: 0.02, // 2% base volatility
		PriceFloor:       1000.0,
		JumpProbability:  0.001, // 0.1% chance of a fat-tail move
		JumpMultiplier:   5.0,
	}
}

// Feed simulates a price series with geometric Brownian motion and feeds each
// tick into the volatility engine.
type Feed struct {
	engine *Engine
	config FeedConfig
	rng    *rand.Rand
	logger *slog.Logger
	now    func() time.Time
}

// NewFeed creates a new price feed with default config
func NewFeed(engine *Engine) *Feed {
	return NewFeedWithConfig(engine, DefaultFeedConfig())
}

// NewFeedWithConfig creates a new price feed with custom config
func NewFeedWithConfig(engine *Engine, config FeedConfig) *Feed {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}

	return &Feed{
		engine: engine,
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Start begins producing price ticks until the context is cancelled.
func (f *Feed) Start(ctx context.Context) {
	f.logger.Info("starting price feed simulation",
		"symbol", f.config.Symbol,
		"interval", f.config.Interval)

	go func() {
		defer f.logger.Info("price feed stopped", "symbol", f.config.Symbol)

		ticker := time.NewTicker(f.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				f.Tick()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Tick advances the simulation by one step and records the resulting point.
func (f *Feed) Tick() model.PricePoint {
	now := f.now()
	price := f.engine.CurrentPrice()

	dt := f.config.Interval.Seconds() / 86400 // one tick as a fraction of a day
	volatility := f.config.VolatilityFactor * sessionMultiplier(now.Hour())

	shock := f.rng.NormFloat64()
	if f.rng.Float64() < f.config.JumpProbability {
		shock *= f.config.JumpMultiplier
	}

	change := price * (f.config.Drift*dt + volatility*math.Sqrt(dt)*shock)
	newPrice := math.Max(price+change, f.config.PriceFloor)

	point := model.PricePoint{
		Price:     newPrice,
		Timestamp: now,
		Change:    change,
	}
	f.engine.RecordPrice(point)

	// Log significant moves (> 0.1% of price) for observability.
	if math.Abs(change) > newPrice*0.001 {
		f.logger.Info("significant price move",
			"symbol", f.config.Symbol,
			"price", newPrice,
			"change", change)
	}

	return point
}

// sessionMultiplier scales base volatility for market-session effects: thin
// Asian hours trade wilder, US hours moderately so.
func sessionMultiplier(hour int) float64 {
	switch {
	case hour >= 2 && hour <= 6:
		return 1.5
	case hour >= 14 && hour <= 18:
		return 1.2
	default:
		return 1.0
	}
}
