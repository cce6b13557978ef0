package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"RiskAnalyticsService/internal/metrics"
	"RiskAnalyticsService/internal/model"
)

// Analyzer scores a parsed order.
type Analyzer interface {
	Analyze(order model.Order) (model.RiskAnalysis, error)
}

// AnalysisStore persists scored analyses keyed by order identifier.
type AnalysisStore interface {
	Save(ctx context.Context, analysis model.RiskAnalysis, messageID string) error
}

// ConsumerConfig holds configuration for the stream consumer
type ConsumerConfig struct {
	StreamName    string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int64
	BlockTimeout  time.Duration
	RetryBackoff  time.Duration
}

// DefaultConsumerConfig returns a sensible default configuration
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		StreamName:    "orders:stream",
		ConsumerGroup: "analytics-group",
		ConsumerName:  "analytics-consumer-1",
		BatchSize:     10,
		BlockTimeout:  time.Second,
		RetryBackoff:  time.Second,
	}
}

// Consumer reads orders from the stream with consumer-group semantics, scores
// each message, persists the verdict, and acknowledges on success only.
// Delivery is at-least-once: a message that fails anywhere between parse and
// persist stays pending for redelivery.
type Consumer struct {
	rdb      *redis.Client
	analyzer Analyzer
	store    AnalysisStore
	config   ConsumerConfig
	logger   *slog.Logger
}

// NewConsumer creates a new stream consumer
func NewConsumer(rdb *redis.Client, analyzer Analyzer, store AnalysisStore, config ConsumerConfig, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}

	return &Consumer{
		rdb:      rdb,
		analyzer: analyzer,
		store:    store,
		config:   config,
		logger:   logger,
	}
}

// Start verifies connectivity, ensures the consumer group exists, and then
// launches the consumption loop. Group-setup failures other than "group
// already exists" are fatal.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	c.logger.Info("connected to redis", "stream", c.config.StreamName)

	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	go c.consumeLoop(ctx)
	return nil
}

// ensureGroup creates the consumer group (and the stream, if absent) at the
// beginning-of-stream offset. An existing group is fine.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.config.StreamName, c.config.ConsumerGroup, "0").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			c.logger.Info("consumer group already exists", "group", c.config.ConsumerGroup)
			return nil
		}
		return fmt.Errorf("create consumer group %s: %w", c.config.ConsumerGroup, err)
	}

	c.logger.Info("created consumer group", "group", c.config.ConsumerGroup)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	c.logger.Info("starting message consumption",
		"stream", c.config.StreamName,
		"group", c.config.ConsumerGroup,
		"consumer", c.config.ConsumerName)
	defer c.logger.Info("stream consumer stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.ConsumerGroup,
			Consumer: c.config.ConsumerName,
			Streams:  []string{c.config.StreamName, ">"},
			Count:    c.config.BatchSize,
			Block:    c.config.BlockTimeout,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // empty poll
			}
			if ctx.Err() != nil {
				return
			}

			c.logger.Error("error reading from stream", "error", err)
			select {
			case <-time.After(c.config.RetryBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				if err := c.handleMessage(ctx, msg); err != nil {
					// Leave unacknowledged so the message is redelivered.
					metrics.OrdersFailed.Inc()
					c.logger.Error("failed to process message",
						"message_id", msg.ID,
						"error", err)
					continue
				}

				if err := c.rdb.XAck(ctx, c.config.StreamName, c.config.ConsumerGroup, msg.ID).Err(); err != nil {
					c.logger.Error("failed to ack message",
						"message_id", msg.ID,
						"error", err)
				}
			}
		}
	}
}

// handleMessage runs one message through parse, scoring, and persistence.
// Acknowledgment is the caller's job and must only happen when this returns
// nil.
func (c *Consumer) handleMessage(ctx context.Context, msg redis.XMessage) error {
	order, err := ParseOrderMessage(msg.Values)
	if err != nil {
		return fmt.Errorf("parse order: %w", err)
	}

	analysis, err := c.analyzer.Analyze(order)
	if err != nil {
		return fmt.Errorf("analyze order %s: %w", order.OrderID, err)
	}

	if err := c.store.Save(ctx, analysis, msg.ID); err != nil {
		return err
	}

	metrics.OrdersProcessed.Inc()
	metrics.Verdicts.WithLabelValues(string(analysis.Verdict)).Inc()
	metrics.ProcessingTime.Observe(float64(analysis.ProcessingTimeMs) / 1000)

	c.logger.Info("processed order",
		"order_id", order.OrderID,
		"verdict", analysis.Verdict,
		"score", analysis.RiskScore)

	return nil
}

// PendingCount returns the number of delivered-but-unacknowledged messages
// for this consumer group.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	groups, err := c.rdb.XInfoGroups(ctx, c.config.StreamName).Result()
	if err != nil {
		return 0, fmt.Errorf("inspect stream groups: %w", err)
	}

	for _, g := range groups {
		if g.Name == c.config.ConsumerGroup {
			return g.Pending, nil
		}
	}
	return 0, nil
}
