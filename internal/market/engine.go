package market

import (
	"math"
	"sync"
	"time"

	"RiskAnalyticsService/internal/model"
)

// Configuration constants
const (
	// DefaultWindowCapacity bounds the retained price history.
	DefaultWindowCapacity = 1000

	// MinPointsForVolatility is the cold-start guard: below this many retained
	// points the realized volatility is reported as zero.
	MinPointsForVolatility = 10

	// PercentileBlockSize is the number of points per historical volatility
	// sample when ranking the current volatility.
	PercentileBlockSize = 10

	// minutesPerYear scales per-window volatility to an annual figure.
	minutesPerYear = 365 * 24 * 60
)

// Slippage model constants, all in basis points.
const (
	baseSlippageBps          = 5.0
	maxSizeImpactBps         = 50.0
	maxVolatilityImpactBps   = 20.0
	lowLiquiditySurchargeBps = 5.0
	sizeImpactDivisor        = 100000.0
)

// EngineConfig holds configuration for the volatility engine
type EngineConfig struct {
	WindowCapacity   int
	VolatilityWindow time.Duration
}

// DefaultEngineConfig returns sensible default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WindowCapacity:   DefaultWindowCapacity,
		VolatilityWindow: time.Minute,
	}
}

// Engine owns the retained price history and derives realized volatility,
// volatility percentile rank, and slippage estimates from it. The price feed
// is the only writer; any number of readers may query concurrently.
type Engine struct {
	history      []model.PricePoint
	currentPrice float64
	lastUpdate   time.Time
	config       EngineConfig
	mu           sync.RWMutex
	now          func() time.Time
}

// NewEngine creates a new volatility engine with default config
func NewEngine(startingPrice float64) *Engine {
	return NewEngineWithConfig(startingPrice, DefaultEngineConfig())
}

// NewEngineWithConfig creates a new volatility engine with custom config
func NewEngineWithConfig(startingPrice float64, config EngineConfig) *Engine {
	if config.WindowCapacity <= 0 {
		config.WindowCapacity = DefaultWindowCapacity
	}
	if config.VolatilityWindow <= 0 {
		config.VolatilityWindow = time.Minute
	}

	return &Engine{
		history:      make([]model.PricePoint, 0, config.WindowCapacity),
		currentPrice: startingPrice,
		lastUpdate:   time.Now(),
		config:       config,
		now:          time.Now,
	}
}

// RecordPrice appends a new price point, evicting the oldest when the window
// is at capacity, and updates the current price state.
func (e *Engine) RecordPrice(point model.PricePoint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, point)
	if len(e.history) > e.config.WindowCapacity {
		e.history = e.history[len(e.history)-e.config.WindowCapacity:]
	}

	e.currentPrice = point.Price
	e.lastUpdate = point.Timestamp
}

// CurrentPrice returns the latest simulated price.
func (e *Engine) CurrentPrice() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentPrice
}

// LastUpdate returns the timestamp of the latest price point.
func (e *Engine) LastUpdate() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUpdate
}

// CurrentVolatility computes the annualized realized volatility of simple
// returns over the trailing volatility window. It returns 0 while fewer than
// MinPointsForVolatility points are retained, or when fewer than 2 points
// fall inside the window.
func (e *Engine) CurrentVolatility() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.history) < MinPointsForVolatility {
		return 0
	}

	cutoff := e.now().Add(-e.config.VolatilityWindow)
	recent := make([]model.PricePoint, 0, len(e.history))
	for _, p := range e.history {
		if p.Timestamp.After(cutoff) {
			recent = append(recent, p)
		}
	}

	if len(recent) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		returns = append(returns, (recent[i].Price-recent[i-1].Price)/recent[i-1].Price)
	}

	return annualize(stddev(returns))
}

// VolatilityPercentile ranks the current volatility against historical
// volatilities sampled from contiguous blocks of the retained window. Blocks
// whose starting timestamp falls outside the lookback are skipped. Returns
// the percentage of block volatilities strictly below the current value, or
// 50 when no blocks qualify.
func (e *Engine) VolatilityPercentile(lookbackMinutes int) float64 {
	currentVol := e.CurrentVolatility()

	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := e.now().Add(-time.Duration(lookbackMinutes) * time.Minute)

	var historicalVols []float64
	for i := 0; i < len(e.history)-PercentileBlockSize; i += PercentileBlockSize {
		if e.history[i].Timestamp.Before(cutoff) {
			continue
		}

		block := e.history[i : i+PercentileBlockSize]
		returns := make([]float64, 0, len(block)-1)
		for j := 1; j < len(block); j++ {
			returns = append(returns, (block[j].Price-block[j-1].Price)/block[j-1].Price)
		}
		if len(returns) > 0 {
			historicalVols = append(historicalVols, annualize(stddev(returns)))
		}
	}

	if len(historicalVols) == 0 {
		return 50.0
	}

	below := 0
	for _, v := range historicalVols {
		if v < currentVol {
			below++
		}
	}

	return float64(below) / float64(len(historicalVols)) * 100
}

// PriceHistory returns the retained points newer than now minus the given
// number of minutes, oldest first.
func (e *Engine) PriceHistory(minutes int) []model.PricePoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := e.now().Add(-time.Duration(minutes) * time.Minute)

	result := make([]model.PricePoint, 0, len(e.history))
	for _, p := range e.history {
		if p.Timestamp.After(cutoff) {
			result = append(result, p)
		}
	}

	return result
}

// CalculateSlippage estimates execution slippage in basis points for an order
// of the given notional size: a fixed base, a size impact, a volatility
// impact, and a surcharge during low-liquidity hours.
func (e *Engine) CalculateSlippage(orderNotional float64, symbol string) float64 {
	volatility := e.CurrentVolatility()

	sizeImpact := math.Min(orderNotional/sizeImpactDivisor, maxSizeImpactBps)
	volatilityImpact := math.Min(volatility*1000, maxVolatilityImpactBps)

	timeImpact := 0.0
	if isLowLiquidityHour(e.now().Hour()) {
		timeImpact = lowLiquiditySurchargeBps
	}

	return baseSlippageBps + sizeImpact + volatilityImpact + timeImpact
}

// isLowLiquidityHour reports whether the hour falls in the thin Asian-session
// window, shared by the feed's session volatility scaling.
func isLowLiquidityHour(hour int) bool {
	return hour >= 2 && hour <= 6
}

// stddev returns the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

func annualize(vol float64) float64 {
	return vol * math.Sqrt(minutesPerYear)
}
