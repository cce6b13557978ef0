package model

import "time"

// Verdict classifies the risk of an order.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictWarn   Verdict = "WARN"
	VerdictReject Verdict = "REJECT"
)

// Order represents a single trade order read from the stream.
type Order struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	OrderType string    `json:"orderType"`
	Timestamp time.Time `json:"timestamp"`
}

// Notional returns the monetary size of the order (quantity x price).
func (o Order) Notional() float64 {
	return o.Quantity * o.Price
}

// PricePoint is one tick of the simulated price feed.
type PricePoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Change    float64   `json:"change"`
}

// RiskAnalysis is the scored verdict for one order.
type RiskAnalysis struct {
	OrderID          string    `json:"orderId"`
	UserID           string    `json:"userId"`
	Symbol           string    `json:"symbol"`
	RiskScore        float64   `json:"riskScore"`
	Verdict          Verdict   `json:"verdict"`
	Volatility       float64   `json:"volatility"`
	Slippage         float64   `json:"slippage"`
	Reasons          []string  `json:"reasons"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	Timestamp        time.Time `json:"timestamp"`
}

// OrderSummary is a compact record of a scored order kept in a user's
// recent-order history.
type OrderSummary struct {
	OrderID   string    `json:"orderId"`
	Timestamp time.Time `json:"timestamp"`
	Notional  float64   `json:"notional"`
	RiskScore float64   `json:"riskScore"`
}

// UserProfile aggregates a user's order activity over the process lifetime.
type UserProfile struct {
	UserID       string         `json:"userId"`
	TotalOrders  int            `json:"totalOrders"`
	TotalVolume  float64        `json:"totalVolume"`
	RecentOrders []OrderSummary `json:"recentOrders"`
	RiskEvents   int            `json:"riskEvents"`
	LastActivity time.Time      `json:"lastActivity"`
}

// VolatilityData is the read-side view of the price feed state.
type VolatilityData struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"currentPrice"`
	Volatility   float64   `json:"volatility"`
	Timestamp    time.Time `json:"timestamp"`
}
