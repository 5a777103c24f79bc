package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/payroll-api/utils"
	"go.uber.org/zap"
)

// ReadinessChecker reports whether a dependency can serve requests
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	jwks    ReadinessChecker
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil jwks checker is
// reported as not_configured without failing readiness.
func NewHealthHandler(jwks ReadinessChecker, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		jwks:    jwks,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
// Readiness check - the signing keys must be reachable to verify tokens
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.jwks == nil:
		checks["jwks"] = "not_configured"
	default:
		if err := h.jwks.Ready(ctx); err != nil {
			h.logger.Warn("jwks health check failed", zap.Error(err))
			checks["jwks"] = "unhealthy"
			allHealthy = false
		} else {
			checks["jwks"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
