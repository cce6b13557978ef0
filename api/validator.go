package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"RiskAnalyticsService/internal/model"
)

// OrderRequest is the inbound JSON body for /analyze and /orders.
type OrderRequest struct {
	OrderID   string  `json:"orderId"`
	UserID    string  `json:"userId"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	OrderType string  `json:"orderType"`
	Timestamp string  `json:"timestamp"`
}

// Validator handles validation logic separate from HTTP concerns
type Validator struct {
	validSides      map[string]bool
	validOrderTypes map[string]bool
	symbolRegex     *regexp.Regexp
	idRegex         *regexp.Regexp
}

var (
	validatorInstance *Validator
	validatorOnce     sync.Once
)

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		validatorInstance = &Validator{
			validSides: map[string]bool{
				"BUY":  true,
				"SELL": true,
			},
			validOrderTypes: map[string]bool{
				"MARKET": true,
				"LIMIT":  true,
				"STOP":   true,
			},
			symbolRegex: regexp.MustCompile(`^[a-zA-Z]{3,5}-[a-zA-Z]{3,5}$`),
			idRegex:     regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`),
		}
	})
	return validatorInstance
}

// ValidateOrderRequest validates and sanitizes an order submission, returning
// the typed order. The order ID is optional (a missing one is generated by
// the caller); the timestamp defaults to now.
func (v *Validator) ValidateOrderRequest(req OrderRequest) (model.Order, error) {
	orderID := v.sanitizeInput(req.OrderID)
	if orderID != "" && !v.idRegex.MatchString(orderID) {
		return model.Order{}, errors.New("orderId may only contain letters, numbers, hyphens, or underscores")
	}

	userID, err := v.ValidateUserID(req.UserID)
	if err != nil {
		return model.Order{}, err
	}

	symbol := v.sanitizeInput(req.Symbol)
	if err := v.validateSymbol(symbol); err != nil {
		return model.Order{}, err
	}

	side := strings.ToUpper(v.sanitizeInput(req.Side))
	if !v.validSides[side] {
		return model.Order{}, fmt.Errorf("invalid side '%s'. Supported values: BUY, SELL", req.Side)
	}

	orderType := strings.ToUpper(v.sanitizeInput(req.OrderType))
	if !v.validOrderTypes[orderType] {
		return model.Order{}, fmt.Errorf("invalid orderType '%s'. Supported values: MARKET, LIMIT, STOP", req.OrderType)
	}

	if req.Quantity <= 0 {
		return model.Order{}, errors.New("quantity must be a positive number")
	}
	if req.Price <= 0 {
		return model.Order{}, errors.New("price must be a positive number")
	}

	timestamp := time.Now()
	if raw := v.sanitizeInput(req.Timestamp); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return model.Order{}, errors.New("timestamp must be RFC 3339")
		}
		timestamp = parsed
	}

	return model.Order{
		OrderID:   orderID,
		UserID:    userID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  req.Quantity,
		Price:     req.Price,
		OrderType: orderType,
		Timestamp: timestamp,
	}, nil
}

// ValidateOrderID validates an order identifier path parameter.
func (v *Validator) ValidateOrderID(orderID string) (string, error) {
	orderID = v.sanitizeInput(orderID)
	if orderID == "" {
		return "", errors.New("orderId parameter is required")
	}
	if !v.idRegex.MatchString(orderID) {
		return "", errors.New("orderId may only contain letters, numbers, hyphens, or underscores")
	}
	return orderID, nil
}

// ValidateUserID validates a user identifier.
func (v *Validator) ValidateUserID(userID string) (string, error) {
	userID = v.sanitizeInput(userID)
	if userID == "" {
		return "", errors.New("userId parameter is required")
	}
	if !v.idRegex.MatchString(userID) {
		return "", errors.New("userId may only contain letters, numbers, hyphens, or underscores")
	}
	return userID, nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func (v *Validator) sanitizeInput(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.Map(func(r rune) rune {
		// Keep printable ASCII and common symbols, remove control chars
		if r < 32 && r != 9 && r != 10 && r != 13 { // Keep tab, LF, CR
			return -1 // Remove character
		}
		return r
	}, input)

	// Limit length to prevent DoS
	if len(input) > 100 {
		input = input[:100]
	}

	return input
}

// validateSymbol validates a trading symbol with input sanitization
func (v *Validator) validateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("symbol parameter is required")
	}

	if !v.symbolRegex.MatchString(symbol) {
		return errors.New("symbol must look like BASE-QUOTE, e.g. BTC-USD")
	}

	return nil
}
