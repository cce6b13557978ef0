package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"RiskAnalyticsService/internal/model"
)

// orderDataField carries a nested serialized order when the producer wraps
// the whole order as one JSON payload.
const orderDataField = "orderData"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseOrderMessage resolves a stream message body into a typed Order. The
// body either contains a single serialized-order payload field or the order
// fields directly. Malformed input fails the whole parse; no partially-typed
// order is produced.
func ParseOrderMessage(values map[string]interface{}) (model.Order, error) {
	if raw, ok := values[orderDataField]; ok {
		payload, ok := raw.(string)
		if !ok {
			return model.Order{}, fmt.Errorf("field %q is not a string", orderDataField)
		}

		var order model.Order
		if err := json.Unmarshal([]byte(payload), &order); err != nil {
			return model.Order{}, fmt.Errorf("unmarshal %s payload: %w", orderDataField, err)
		}
		if err := validateParsedOrder(order); err != nil {
			return model.Order{}, err
		}
		return order, nil
	}

	orderID, err := stringField(values, "orderId")
	if err != nil {
		return model.Order{}, err
	}
	userID, err := stringField(values, "userId")
	if err != nil {
		return model.Order{}, err
	}
	symbol, err := stringField(values, "symbol")
	if err != nil {
		return model.Order{}, err
	}
	side, err := stringField(values, "side")
	if err != nil {
		return model.Order{}, err
	}
	orderType, err := stringField(values, "orderType")
	if err != nil {
		return model.Order{}, err
	}
	quantity, err := floatField(values, "quantity")
	if err != nil {
		return model.Order{}, err
	}
	price, err := floatField(values, "price")
	if err != nil {
		return model.Order{}, err
	}

	rawTS, err := stringField(values, "timestamp")
	if err != nil {
		return model.Order{}, err
	}
	timestamp, err := parseTimestamp(rawTS)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{
		OrderID:   orderID,
		UserID:    userID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		OrderType: orderType,
		Timestamp: timestamp,
	}
	if err := validateParsedOrder(order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func validateParsedOrder(order model.Order) error {
	if order.OrderID == "" {
		return fmt.Errorf("missing required field %q", "orderId")
	}
	if order.UserID == "" {
		return fmt.Errorf("missing required field %q", "userId")
	}
	if order.Symbol == "" {
		return fmt.Errorf("missing required field %q", "symbol")
	}
	if order.Side == "" {
		return fmt.Errorf("missing required field %q", "side")
	}
	if order.OrderType == "" {
		return fmt.Errorf("missing required field %q", "orderType")
	}
	if order.Quantity <= 0 {
		return fmt.Errorf("field %q must be a positive number", "quantity")
	}
	if order.Price <= 0 {
		return fmt.Errorf("field %q must be a positive number", "price")
	}
	if order.Timestamp.IsZero() {
		return fmt.Errorf("missing required field %q", "timestamp")
	}
	return nil
}

func stringField(values map[string]interface{}, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}

	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("field %q is empty or not a string", key)
	}
	return s, nil
}

func floatField(values map[string]interface{}, key string) (float64, error) {
	s, err := stringField(values, key)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not numeric: %w", key, err)
	}
	return f, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("field %q is not a valid timestamp: %s", "timestamp", raw)
}
