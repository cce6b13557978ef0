package api

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RiskAnalyticsService/internal/model"
)

// This file is the entry point for the API package: the APIHandler struct and
// its dependencies. Handlers, middleware, and validation live in their own
// files:
// - api.go: main API handler and dependencies (this file)
// - handler.go: HTTP request handlers
// - middleware.go: middleware functions
// - validator.go: request validation

// Constants
const (
	DefaultTimeout      = 30 * time.Second
	ServiceVersion      = "1.0.0"
	ServiceName         = "risk-analytics-service"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// AnalyticsService is the read-side query surface the API exposes.
type AnalyticsService interface {
	Volatility(ctx context.Context) model.VolatilityData
	Analysis(ctx context.Context, orderID string) (*model.RiskAnalysis, error)
	PendingMessages(ctx context.Context) (int64, error)
	UserProfile(userID string) (model.UserProfile, bool)
}

// OrderAnalyzer scores an order synchronously for the manual-analyze endpoint.
type OrderAnalyzer interface {
	Analyze(order model.Order) (model.RiskAnalysis, error)
}

// OrderPublisher appends a validated order onto the order stream.
type OrderPublisher interface {
	Publish(ctx context.Context, order model.Order) (string, error)
}

// APIHandler handles HTTP requests using Gin framework
type APIHandler struct {
	analytics AnalyticsService
	analyzer  OrderAnalyzer
	publisher OrderPublisher
	validator *Validator
	logger    *slog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(analytics AnalyticsService, analyzer OrderAnalyzer, publisher OrderPublisher, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		analytics: analytics,
		analyzer:  analyzer,
		publisher: publisher,
		validator: GetValidator(),
		logger:    logger,
	}
}

// StartServer starts the HTTP server
func (h *APIHandler) StartServer(port int) error {
	router := h.SetupRoutes()
	return router.Run(":" + strconv.Itoa(port))
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(requestIDMiddleware())
	router.Use(requestLogMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// API routes
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/volatility/btc", h.GetVolatility)
	router.GET("/analysis/:orderId", h.GetAnalysis)
	router.GET("/pending", h.GetPendingMessages)
	router.GET("/users/:userId/profile", h.GetUserProfile)
	router.POST("/analyze", h.AnalyzeOrder)
	router.POST("/orders", h.SubmitOrder)

	return router
}
