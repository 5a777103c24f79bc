package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReadinessChecker struct {
	mock.Mock
}

func (m *MockReadinessChecker) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object")
	return data
}

func TestHandleHealth(t *testing.T) {
	t.Run("always returns healthy", func(t *testing.T) {
		handler := NewHealthHandler(nil, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "healthy", data["status"])
		assert.NotEmpty(t, data["timestamp"])
	})
}

func TestHandleReadiness(t *testing.T) {
	t.Run("healthy when jwks is reachable", func(t *testing.T) {
		checker := new(MockReadinessChecker)
		checker.On("Ready", mock.Anything).Return(nil)
		handler := NewHealthHandler(checker, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, "healthy", data["checks"].(map[string]interface{})["jwks"])
		checker.AssertExpectations(t)
	})

	t.Run("unhealthy when jwks fetch fails", func(t *testing.T) {
		checker := new(MockReadinessChecker)
		checker.On("Ready", mock.Anything).Return(errors.New("connection refused"))
		handler := NewHealthHandler(checker, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "unhealthy", data["status"])
		assert.Equal(t, "unhealthy", data["checks"].(map[string]interface{})["jwks"])
	})

	t.Run("not configured is still ready", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "not_configured", data["checks"].(map[string]interface{})["jwks"])
	})

	t.Run("check receives a deadline", func(t *testing.T) {
		checker := new(MockReadinessChecker)
		checker.On("Ready", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(nil)
		handler := NewHealthHandler(checker, zap.NewNop())

		handler.HandleReadiness(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		checker.AssertExpectations(t)
	})
}
