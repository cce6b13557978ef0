package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"RiskAnalyticsService/internal/model"
)

const (
	analysisKeyPrefix = "analysis:"

	// AnalysisTTL is how long stored verdicts stay retrievable.
	AnalysisTTL = 24 * time.Hour
)

// ResultStore persists risk analyses keyed by order identifier. Writes are
// idempotent per order: redelivered messages overwrite the same key.
type ResultStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewResultStore creates a result store with the default 24h expiry
func NewResultStore(rdb redis.Cmdable) *ResultStore {
	return &ResultStore{rdb: rdb, ttl: AnalysisTTL}
}

// Save writes the analysis as a flat hash under analysis:<orderId> with the
// configured expiry. messageID records which stream entry produced it.
func (s *ResultStore) Save(ctx context.Context, analysis model.RiskAnalysis, messageID string) error {
	key := analysisKey(analysis.OrderID)

	fields, err := flattenAnalysis(analysis, messageID)
	if err != nil {
		return fmt.Errorf("flatten analysis %s: %w", analysis.OrderID, err)
	}

	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("store analysis %s: %w", analysis.OrderID, err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("set expiry on %s: %w", key, err)
	}

	return nil
}

// Get looks up a stored analysis by order identifier. It returns nil when no
// analysis exists for the order.
func (s *ResultStore) Get(ctx context.Context, orderID string) (*model.RiskAnalysis, error) {
	fields, err := s.rdb.HGetAll(ctx, analysisKey(orderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", orderID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	analysis, err := parseAnalysis(fields)
	if err != nil {
		return nil, fmt.Errorf("parse stored analysis %s: %w", orderID, err)
	}
	return analysis, nil
}

func analysisKey(orderID string) string {
	return analysisKeyPrefix + orderID
}

// flattenAnalysis maps an analysis onto flat hash fields; reasons are
// serialized as a JSON list in a single field.
func flattenAnalysis(analysis model.RiskAnalysis, messageID string) (map[string]interface{}, error) {
	reasons, err := json.Marshal(analysis.Reasons)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"orderId":          analysis.OrderID,
		"userId":           analysis.UserID,
		"symbol":           analysis.Symbol,
		"verdict":          string(analysis.Verdict),
		"riskScore":        strconv.FormatFloat(analysis.RiskScore, 'f', -1, 64),
		"volatility":       strconv.FormatFloat(analysis.Volatility, 'f', -1, 64),
		"slippage":         strconv.FormatFloat(analysis.Slippage, 'f', -1, 64),
		"reasons":          string(reasons),
		"processingTimeMs": strconv.FormatInt(analysis.ProcessingTimeMs, 10),
		"timestamp":        analysis.Timestamp.Format(time.RFC3339Nano),
		"messageId":        messageID,
	}, nil
}

func parseAnalysis(fields map[string]string) (*model.RiskAnalysis, error) {
	riskScore, err := strconv.ParseFloat(fields["riskScore"], 64)
	if err != nil {
		return nil, fmt.Errorf("bad riskScore: %w", err)
	}
	volatility, err := strconv.ParseFloat(fields["volatility"], 64)
	if err != nil {
		return nil, fmt.Errorf("bad volatility: %w", err)
	}
	slippage, err := strconv.ParseFloat(fields["slippage"], 64)
	if err != nil {
		return nil, fmt.Errorf("bad slippage: %w", err)
	}
	processingMs, err := strconv.ParseInt(fields["processingTimeMs"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad processingTimeMs: %w", err)
	}

	var reasons []string
	if err := json.Unmarshal([]byte(fields["reasons"]), &reasons); err != nil {
		return nil, fmt.Errorf("bad reasons: %w", err)
	}

	timestamp, err := time.Parse(time.RFC3339Nano, fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp: %w", err)
	}

	return &model.RiskAnalysis{
		OrderID:          fields["orderId"],
		UserID:           fields["userId"],
		Symbol:           fields["symbol"],
		RiskScore:        riskScore,
		Verdict:          model.Verdict(fields["verdict"]),
		Volatility:       volatility,
		Slippage:         slippage,
		Reasons:          reasons,
		ProcessingTimeMs: processingMs,
		Timestamp:        timestamp,
	}, nil
}
