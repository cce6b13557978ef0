package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"RiskAnalyticsService/internal/model"
)

// MockAnalyticsService implements AnalyticsService interface for testing
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Volatility(ctx context.Context) model.VolatilityData {
	args := m.Called(ctx)
	return args.Get(0).(model.VolatilityData)
}

func (m *MockAnalyticsService) Analysis(ctx context.Context, orderID string) (*model.RiskAnalysis, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RiskAnalysis), args.Error(1)
}

func (m *MockAnalyticsService) PendingMessages(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsService) UserProfile(userID string) (model.UserProfile, bool) {
	args := m.Called(userID)
	return args.Get(0).(model.UserProfile), args.Bool(1)
}

// MockOrderAnalyzer implements OrderAnalyzer interface for testing
type MockOrderAnalyzer struct {
	mock.Mock
}

func (m *MockOrderAnalyzer) Analyze(order model.Order) (model.RiskAnalysis, error) {
	args := m.Called(order)
	return args.Get(0).(model.RiskAnalysis), args.Error(1)
}

// MockOrderPublisher implements OrderPublisher interface for testing
type MockOrderPublisher struct {
	mock.Mock
}

func (m *MockOrderPublisher) Publish(ctx context.Context, order model.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Suppress logs during testing
	}))
}

func setupGinTestMode() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler() (*APIHandler, *MockAnalyticsService, *MockOrderAnalyzer, *MockOrderPublisher) {
	analytics := &MockAnalyticsService{}
	analyzer := &MockOrderAnalyzer{}
	publisher := &MockOrderPublisher{}
	handler := NewAPIHandler(analytics, analyzer, publisher, setupTestLogger())
	return handler, analytics, analyzer, publisher
}

func performRequest(handler *APIHandler, method, path string, body []byte) *httptest.ResponseRecorder {
	router := handler.SetupRoutes()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleOrderBody() []byte {
	body, _ := json.Marshal(OrderRequest{
		OrderID:   "ord-1",
		UserID:    "user-1",
		Symbol:    "BTC-USD",
		Side:      "BUY",
		Quantity:  0.5,
		Price:     45000,
		OrderType: "MARKET",
		Timestamp: "2024-01-10T10:00:00Z",
	})
	return body
}

// Test NewAPIHandler
func TestNewAPIHandler(t *testing.T) {
	setupGinTestMode()

	t.Run("with valid dependencies and logger", func(t *testing.T) {
		handler := NewAPIHandler(&MockAnalyticsService{}, &MockOrderAnalyzer{}, &MockOrderPublisher{}, setupTestLogger())

		assert.NotNil(t, handler)
		assert.NotNil(t, handler.validator)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		handler := NewAPIHandler(&MockAnalyticsService{}, &MockOrderAnalyzer{}, &MockOrderPublisher{}, nil)

		assert.NotNil(t, handler)
		assert.NotNil(t, handler.logger)
	})
}

func TestHealthCheck(t *testing.T) {
	setupGinTestMode()
	handler, _, _, _ := newTestHandler()

	w := performRequest(handler, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "OK", response["status"])
	assert.Equal(t, ServiceName, response["service"])
}

func TestGetVolatility(t *testing.T) {
	setupGinTestMode()
	handler, analytics, _, _ := newTestHandler()

	analytics.On("Volatility", mock.Anything).Return(model.VolatilityData{
		Symbol:       "BTC-USD",
		Volatility:   0.0421,
		CurrentPrice: 45123.5,
	})

	w := performRequest(handler, http.MethodGet, "/volatility/btc", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response model.VolatilityData
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "BTC-USD", response.Symbol)
	assert.Equal(t, 0.0421, response.Volatility)
	analytics.AssertExpectations(t)
}

func TestGetAnalysis(t *testing.T) {
	setupGinTestMode()

	t.Run("found", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()
		analytics.On("Analysis", mock.Anything, "ord-1").Return(&model.RiskAnalysis{
			OrderID:   "ord-1",
			Verdict:   model.VerdictWarn,
			RiskScore: 42.5,
		}, nil)

		w := performRequest(handler, http.MethodGet, "/analysis/ord-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var response model.RiskAnalysis
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ord-1", response.OrderID)
		assert.Equal(t, model.VerdictWarn, response.Verdict)
		analytics.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()
		analytics.On("Analysis", mock.Anything, "missing").Return(nil, nil)

		w := performRequest(handler, http.MethodGet, "/analysis/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid order id", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()

		w := performRequest(handler, http.MethodGet, "/analysis/bad%20id", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		analytics.AssertNotCalled(t, "Analysis", mock.Anything, mock.Anything)
	})

	t.Run("store error", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()
		analytics.On("Analysis", mock.Anything, "ord-1").Return(nil, errors.New("redis down"))

		w := performRequest(handler, http.MethodGet, "/analysis/ord-1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetPendingMessages(t *testing.T) {
	setupGinTestMode()
	handler, analytics, _, _ := newTestHandler()

	analytics.On("PendingMessages", mock.Anything).Return(int64(3), nil)

	w := performRequest(handler, http.MethodGet, "/pending", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]int64
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(3), response["pending"])
}

func TestGetUserProfile(t *testing.T) {
	setupGinTestMode()

	t.Run("known user", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()
		analytics.On("UserProfile", "user-1").Return(model.UserProfile{
			UserID:      "user-1",
			TotalOrders: 7,
			TotalVolume: 12345.5,
		}, true)

		w := performRequest(handler, http.MethodGet, "/users/user-1/profile", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var response model.UserProfile
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 7, response.TotalOrders)
	})

	t.Run("unknown user", func(t *testing.T) {
		handler, analytics, _, _ := newTestHandler()
		analytics.On("UserProfile", "ghost").Return(model.UserProfile{}, false)

		w := performRequest(handler, http.MethodGet, "/users/ghost/profile", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAnalyzeOrder(t *testing.T) {
	setupGinTestMode()

	t.Run("valid order", func(t *testing.T) {
		handler, _, analyzer, _ := newTestHandler()
		analyzer.On("Analyze", mock.MatchedBy(func(o model.Order) bool {
			return o.OrderID == "ord-1" && o.Side == "BUY"
		})).Return(model.RiskAnalysis{
			OrderID:   "ord-1",
			Verdict:   model.VerdictAccept,
			RiskScore: 5,
		}, nil)

		w := performRequest(handler, http.MethodPost, "/analyze", sampleOrderBody())

		assert.Equal(t, http.StatusOK, w.Code)

		var response model.RiskAnalysis
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, model.VerdictAccept, response.Verdict)
		analyzer.AssertExpectations(t)
	})

	t.Run("invalid side rejected before scoring", func(t *testing.T) {
		handler, _, analyzer, _ := newTestHandler()

		body, _ := json.Marshal(OrderRequest{
			UserID: "user-1", Symbol: "BTC-USD", Side: "HOLD",
			Quantity: 1, Price: 100, OrderType: "MARKET",
		})
		w := performRequest(handler, http.MethodPost, "/analyze", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		analyzer.AssertNotCalled(t, "Analyze", mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		handler, _, _, _ := newTestHandler()

		w := performRequest(handler, http.MethodPost, "/analyze", []byte("{not json"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubmitOrder(t *testing.T) {
	setupGinTestMode()

	t.Run("accepted", func(t *testing.T) {
		handler, _, _, publisher := newTestHandler()
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
			return o.OrderID == "ord-1"
		})).Return("1700000000-0", nil)

		w := performRequest(handler, http.MethodPost, "/orders", sampleOrderBody())

		assert.Equal(t, http.StatusAccepted, w.Code)

		var response map[string]string
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ord-1", response["orderId"])
		assert.Equal(t, "1700000000-0", response["messageId"])
		publisher.AssertExpectations(t)
	})

	t.Run("generates order id when missing", func(t *testing.T) {
		handler, _, _, publisher := newTestHandler()
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
			return o.OrderID != ""
		})).Return("1700000000-1", nil)

		body, _ := json.Marshal(OrderRequest{
			UserID: "user-1", Symbol: "BTC-USD", Side: "SELL",
			Quantity: 1, Price: 100, OrderType: "LIMIT",
		})
		w := performRequest(handler, http.MethodPost, "/orders", body)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var response map[string]string
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response["orderId"])
	})

	t.Run("publish failure", func(t *testing.T) {
		handler, _, _, publisher := newTestHandler()
		publisher.On("Publish", mock.Anything, mock.Anything).Return("", errors.New("stream unavailable"))

		w := performRequest(handler, http.MethodPost, "/orders", sampleOrderBody())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRequestIDHeaderPropagated(t *testing.T) {
	setupGinTestMode()
	handler, _, _, _ := newTestHandler()

	router := handler.SetupRoutes()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeaderKey, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeaderKey))
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	setupGinTestMode()
	handler, _, _, _ := newTestHandler()

	w := performRequest(handler, http.MethodGet, "/health", nil)

	assert.NotEmpty(t, w.Header().Get(RequestIDHeaderKey))
}

func TestRequestLogIncludesRequestID(t *testing.T) {
	setupGinTestMode()

	var logOutput bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logOutput, nil))
	handler := NewAPIHandler(&MockAnalyticsService{}, &MockOrderAnalyzer{}, &MockOrderPublisher{}, logger)

	router := handler.SetupRoutes()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeaderKey, "req-456")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Contains(t, logOutput.String(), `"msg":"http request"`)
	assert.Contains(t, logOutput.String(), `"request_id":"req-456"`)
	assert.Contains(t, logOutput.String(), `"path":"/health"`)
}

func TestCORSHeaders(t *testing.T) {
	setupGinTestMode()
	handler, _, _, _ := newTestHandler()

	router := handler.SetupRoutes()
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestVolatilityTimestampSerialization(t *testing.T) {
	setupGinTestMode()
	handler, analytics, _, _ := newTestHandler()

	ts := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	analytics.On("Volatility", mock.Anything).Return(model.VolatilityData{
		Symbol:    "BTC-USD",
		Timestamp: ts,
	})

	w := performRequest(handler, http.MethodGet, "/volatility/btc", nil)

	var response model.VolatilityData
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, ts.Equal(response.Timestamp))
}
