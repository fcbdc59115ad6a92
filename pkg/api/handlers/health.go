package handlers

import (
	"context"
	"net/http"
	"time"
)

// Healthchecker reports whether the backing store and origin are usable.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Are the record store and the image origin reachable?
type HealthHandler struct {
	checker Healthchecker
}

// NewHealthHandler creates a new health handler. A nil checker makes
// readiness always fail.
func NewHealthHandler(checker Healthchecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "labelhub",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 Service Unavailable when the store or origin check fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("coordinator not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.checker.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "labelhub",
		"latency": time.Since(start).String(),
	}))
}
