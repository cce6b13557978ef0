package service

import (
	"context"
	"fmt"
	"time"

	"RiskAnalyticsService/internal/model"
)

type MarketData interface {
	CurrentPrice() float64
	CurrentVolatility() float64
	LastUpdate() time.Time
}

type AnalysisReader interface {
	Get(ctx context.Context, orderID string) (*model.RiskAnalysis, error)
}

type PendingCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

type ProfileReader interface {
	Profile(userID string) (model.UserProfile, bool)
}

// AnalyticsService provides the read-side queries for the API: feed state,
// stored verdicts, pending message counts, and user profiles.
type AnalyticsService struct {
	market   MarketData
	results  AnalysisReader
	pending  PendingCounter
	profiles ProfileReader
	symbol   string
}

// NewAnalyticsService creates a new analytics query service
func NewAnalyticsService(market MarketData, results AnalysisReader, pending PendingCounter, profiles ProfileReader, symbol string) *AnalyticsService {
	return &AnalyticsService{
		market:   market,
		results:  results,
		pending:  pending,
		profiles: profiles,
		symbol:   symbol,
	}
}

// Volatility returns the current feed state.
func (s *AnalyticsService) Volatility(ctx context.Context) model.VolatilityData {
	return model.VolatilityData{
		Symbol:       s.symbol,
		CurrentPrice: s.market.CurrentPrice(),
		Volatility:   s.market.CurrentVolatility(),
		Timestamp:    s.market.LastUpdate(),
	}
}

// Analysis looks up a stored analysis by order identifier; nil when absent.
func (s *AnalyticsService) Analysis(ctx context.Context, orderID string) (*model.RiskAnalysis, error) {
	analysis, err := s.results.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis for order %s: %w", orderID, err)
	}
	return analysis, nil
}

// PendingMessages returns the unacknowledged message count for the group.
func (s *AnalyticsService) PendingMessages(ctx context.Context) (int64, error) {
	count, err := s.pending.PendingCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending message count: %w", err)
	}
	return count, nil
}

// UserProfile returns a snapshot of a user's behavior profile.
func (s *AnalyticsService) UserProfile(userID string) (model.UserProfile, bool) {
	return s.profiles.Profile(userID)
}
