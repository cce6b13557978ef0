package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the full service configuration, populated from environment
// variables. All values are immutable for the process lifetime.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"risk-analytics-service"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"INFO"`

	Redis  RedisConfig
	Stream StreamConfig
	Market MarketConfig
	Risk   RiskConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StreamConfig identifies the order stream and this service's consumer group.
type StreamConfig struct {
	StreamName    string `envconfig:"ORDER_STREAM" default:"orders:stream"`
	ConsumerGroup string `envconfig:"CONSUMER_GROUP" default:"analytics-group"`
	ConsumerName  string `envconfig:"CONSUMER_NAME" default:"analytics-consumer-1"`
	BatchSize     int64  `envconfig:"CONSUMER_BATCH_SIZE" default:"10"`
}

// MarketConfig drives the simulated price feed and volatility engine.
type MarketConfig struct {
	Symbol                  string        `envconfig:"FEED_SYMBOL" default:"BTC-USD"`
	StartingPrice           float64       `envconfig:"BTC_STARTING_PRICE" default:"45000.0"`
	VolatilityFactor        float64       `envconfig:"BTC_VOLATILITY_FACTOR" default:"0.02"`
	PriceUpdateInterval     time.Duration `envconfig:"PRICE_UPDATE_INTERVAL" default:"1s"`
	VolatilityWindowMinutes int           `envconfig:"VOLATILITY_WINDOW_MINUTES" default:"1"`
}

// RiskConfig holds the scoring thresholds.
type RiskConfig struct {
	HighVolatilityThreshold    float64 `envconfig:"HIGH_VOLATILITY_THRESHOLD" default:"0.05"`
	ExtremeVolatilityThreshold float64 `envconfig:"EXTREME_VOLATILITY_THRESHOLD" default:"0.10"`
}

// Load reads .env if present, then maps environment variables onto Config.
// A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
