package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"RiskAnalyticsService/internal/metrics"
	"RiskAnalyticsService/internal/model"
)

// Publisher appends orders onto the order stream in the field layout the
// consumer understands: the order fields directly plus a nested orderData
// JSON payload.
type Publisher struct {
	rdb        redis.Cmdable
	streamName string
	logger     *slog.Logger
}

// NewPublisher creates a new order publisher
func NewPublisher(rdb redis.Cmdable, streamName string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		rdb:        rdb,
		streamName: streamName,
		logger:     logger,
	}
}

// Publish appends one order to the stream and returns the message identifier.
func (p *Publisher) Publish(ctx context.Context, order model.Order) (string, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		metrics.PublishFailed.Inc()
		return "", fmt.Errorf("serialize order %s: %w", order.OrderID, err)
	}

	values := map[string]interface{}{
		"orderId":      order.OrderID,
		"userId":       order.UserID,
		"symbol":       order.Symbol,
		"side":         order.Side,
		"quantity":     strconv.FormatFloat(order.Quantity, 'f', -1, 64),
		"price":        strconv.FormatFloat(order.Price, 'f', -1, 64),
		"orderType":    order.OrderType,
		"timestamp":    order.Timestamp.Format(time.RFC3339Nano),
		orderDataField: string(payload),
	}

	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		Values: values,
	}).Result()
	if err != nil {
		metrics.PublishFailed.Inc()
		return "", fmt.Errorf("publish order %s: %w", order.OrderID, err)
	}

	metrics.OrdersPublished.Inc()
	p.logger.Debug("published order", "order_id", order.OrderID, "message_id", id)

	return id, nil
}
