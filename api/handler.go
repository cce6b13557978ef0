package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

// GetVolatility handles GET /volatility/btc requests
func (h *APIHandler) GetVolatility(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	c.JSON(http.StatusOK, h.analytics.Volatility(ctx))
}

// GetAnalysis handles GET /analysis/:orderId requests
func (h *APIHandler) GetAnalysis(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	orderID, err := h.validator.ValidateOrderID(c.Param("orderId"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	analysis, err := h.analytics.Analysis(ctx, orderID)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis found for order", "orderId": orderID})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// GetPendingMessages handles GET /pending requests
func (h *APIHandler) GetPendingMessages(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	count, err := h.analytics.PendingMessages(ctx)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"pending": count})
}

// GetUserProfile handles GET /users/:userId/profile requests
func (h *APIHandler) GetUserProfile(c *gin.Context) {
	userID, err := h.validator.ValidateUserID(c.Param("userId"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	profile, ok := h.analytics.UserProfile(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user", "userId": userID})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// AnalyzeOrder handles POST /analyze requests: a manual, synchronous risk
// analysis that bypasses the stream.
func (h *APIHandler) AnalyzeOrder(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}

	order, err := h.validator.ValidateOrderRequest(req)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	analysis, err := h.analyzer.Analyze(order)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// SubmitOrder handles POST /orders requests: validates the order and appends
// it onto the order stream for asynchronous scoring.
func (h *APIHandler) SubmitOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}

	order, err := h.validator.ValidateOrderRequest(req)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	if order.OrderID == "" {
		order.OrderID = uuid.New().String()
	}

	messageID, err := h.publisher.Publish(ctx, order)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"orderId":   order.OrderID,
		"messageId": messageID,
	})
}

// handleError logs the error and sends appropriate HTTP response
func (h *APIHandler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestID, exists := c.Get(RequestIDContextKey)
	requestIDStr := "unknown"
	if exists {
		if id, ok := requestID.(string); ok {
			requestIDStr = id
		}
	}

	h.logger.Error("API error",
		slog.String("request_id", requestIDStr),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestIDStr,
	})
}

// handleValidationError handles validation errors specifically
func (h *APIHandler) handleValidationError(c *gin.Context, err error) {
	h.handleError(c, err, http.StatusBadRequest, err.Error())
}
