package risk

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"RiskAnalyticsService/internal/behavior"
	"RiskAnalyticsService/internal/model"
)

// Score contributions and thresholds for the composite risk model.
const (
	extremeVolatilityScore = 30
	highVolatilityScore    = 15
	volatilityRankScore    = 10
	volatilityRankCutoff   = 90.0

	highSlippageScore     = 20
	moderateSlippageScore = 10
	highSlippageBps       = 25.0
	moderateSlippageBps   = 15.0

	orderFrequencyScore = 25
	orderFrequencyLimit = 10
	largeOrderScore     = 15
	largeOrderFactor    = 5.0
	firstOrderScore     = 5

	offHoursScore      = 5
	weekendScore       = 10
	largeMoveScore     = 10
	largeMoveThreshold = 0.005 // 0.5% of order price

	rejectThreshold = 70.0
	warnThreshold   = 30.0

	percentileLookbackMinutes = 60
	recentMovesWindowMinutes  = 5
	recentMovesInspected      = 10
)

// MarketData is the view of the volatility engine the scorer needs.
type MarketData interface {
	CurrentVolatility() float64
	VolatilityPercentile(lookbackMinutes int) float64
	CalculateSlippage(orderNotional float64, symbol string) float64
	PriceHistory(minutes int) []model.PricePoint
}

// Thresholds holds the configurable volatility cutoffs.
type Thresholds struct {
	HighVolatility    float64
	ExtremeVolatility float64
}

// DefaultThresholds returns sensible default thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighVolatility:    0.05,
		ExtremeVolatility: 0.10,
	}
}

// Analyzer combines volatility, slippage, user-behavior, and market-condition
// signals into a composite risk score and verdict per order.
type Analyzer struct {
	market     MarketData
	tracker    *behavior.Tracker
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyzer creates a new risk analyzer
func NewAnalyzer(market MarketData, tracker *behavior.Tracker, thresholds Thresholds, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		market:     market,
		tracker:    tracker,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze scores one order and returns its risk analysis. The user's profile
// is locked for the duration of the call so concurrent orders from the same
// user serialize; it is updated with the outcome before returning.
func (a *Analyzer) Analyze(order model.Order) (model.RiskAnalysis, error) {
	start := time.Now()

	analysis := model.RiskAnalysis{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Symbol:    order.Symbol,
		Verdict:   model.VerdictAccept,
		Reasons:   []string{},
		Timestamp: a.now(),
	}

	session := a.tracker.Session(order.UserID)
	defer session.Close()

	a.scoreVolatility(&analysis)
	a.scoreSlippage(order, &analysis)
	a.scoreUserBehavior(order, session, &analysis)
	a.scoreMarketConditions(order, &analysis)
	a.determineVerdict(&analysis)

	analysis.ProcessingTimeMs = time.Since(start).Milliseconds()

	session.Record(order, analysis)

	// Verdict thresholds operate on the raw sum; the stored score is reported
	// within [0, 100].
	analysis.RiskScore = math.Min(analysis.RiskScore, 100)

	a.logger.Info("risk analysis completed",
		"order_id", order.OrderID,
		"user_id", order.UserID,
		"verdict", analysis.Verdict,
		"score", analysis.RiskScore)

	return analysis, nil
}

func (a *Analyzer) scoreVolatility(analysis *model.RiskAnalysis) {
	volatility := a.market.CurrentVolatility()
	analysis.Volatility = volatility

	percentile := a.market.VolatilityPercentile(percentileLookbackMinutes)

	if volatility > a.thresholds.ExtremeVolatility {
		analysis.RiskScore += extremeVolatilityScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("Extreme volatility detected: %.2f%%", volatility*100))
	} else if volatility > a.thresholds.HighVolatility {
		analysis.RiskScore += highVolatilityScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("High volatility detected: %.2f%%", volatility*100))
	}

	if percentile > volatilityRankCutoff {
		analysis.RiskScore += volatilityRankScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("Volatility in top 10%% of recent range (%.1fth percentile)", percentile))
	}
}

func (a *Analyzer) scoreSlippage(order model.Order, analysis *model.RiskAnalysis) {
	slippageBps := a.market.CalculateSlippage(order.Notional(), order.Symbol)
	analysis.Slippage = slippageBps / 10000 // bps to decimal fraction

	if slippageBps > highSlippageBps {
		analysis.RiskScore += highSlippageScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("High slippage risk: %.1f bps", slippageBps))
	} else if slippageBps > moderateSlippageBps {
		analysis.RiskScore += moderateSlippageScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("Moderate slippage risk: %.1f bps", slippageBps))
	}
}

func (a *Analyzer) scoreUserBehavior(order model.Order, session *behavior.Session, analysis *model.RiskAnalysis) {
	recentCount := session.RecentOrderCount()
	if recentCount > orderFrequencyLimit {
		analysis.RiskScore += orderFrequencyScore
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("High order frequency: %d orders in 5 minutes", recentCount))
	}

	if !session.IsFirstOrder() {
		avg := session.AverageNotional()
		if avg > 0 && order.Notional() > avg*largeOrderFactor {
			analysis.RiskScore += largeOrderScore
			analysis.Reasons = append(analysis.Reasons,
				fmt.Sprintf("Unusually large order: %.1fx average size", order.Notional()/avg))
		}
	} else {
		analysis.RiskScore += firstOrderScore
		analysis.Reasons = append(analysis.Reasons, "First-time user")
	}
}

func (a *Analyzer) scoreMarketConditions(order model.Order, analysis *model.RiskAnalysis) {
	now := a.now()

	if now.Hour() < 9 || now.Hour() > 16 {
		analysis.RiskScore += offHoursScore
		analysis.Reasons = append(analysis.Reasons, "Trading outside market hours - reduced liquidity")
	}

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		analysis.RiskScore += weekendScore
		analysis.Reasons = append(analysis.Reasons, "Weekend trading - limited market oversight")
	}

	history := a.market.PriceHistory(recentMovesWindowMinutes)
	if len(history) > 1 {
		if len(history) > recentMovesInspected {
			history = history[len(history)-recentMovesInspected:]
		}

		maxChange := 0.0
		for _, p := range history {
			if c := math.Abs(p.Change); c > maxChange {
				maxChange = c
			}
		}

		if maxChange > order.Price*largeMoveThreshold {
			analysis.RiskScore += largeMoveScore
			analysis.Reasons = append(analysis.Reasons,
				fmt.Sprintf("Recent large price movement: %.2f%%", maxChange/order.Price*100))
		}
	}
}

func (a *Analyzer) determineVerdict(analysis *model.RiskAnalysis) {
	var summary string
	switch {
	case analysis.RiskScore >= rejectThreshold:
		analysis.Verdict = model.VerdictReject
		summary = fmt.Sprintf("High risk score: %.1f/100", analysis.RiskScore)
	case analysis.RiskScore >= warnThreshold:
		analysis.Verdict = model.VerdictWarn
		summary = fmt.Sprintf("Moderate risk score: %.1f/100", analysis.RiskScore)
	default:
		analysis.Verdict = model.VerdictAccept
		summary = fmt.Sprintf("Low risk score: %.1f/100", analysis.RiskScore)
	}

	analysis.Reasons = append([]string{summary}, analysis.Reasons...)
}
