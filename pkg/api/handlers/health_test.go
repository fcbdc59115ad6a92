package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Healthcheck(ctx context.Context) error { return f(ctx) }

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "healthy", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "Data should be a map, got %T", resp.Data)
	assert.Equal(t, "labelhub", data["service"])
}

func TestReadiness(t *testing.T) {
	t.Run("NoChecker", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(nil).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "coordinator not initialized", resp.Error)
	})

	t.Run("CheckFails", func(t *testing.T) {
		h := NewHealthHandler(checkerFunc(func(context.Context) error {
			return errors.New("origin unreachable")
		}))
		w := httptest.NewRecorder()
		h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "origin unreachable", decodeResponse(t, w).Error)
	})

	t.Run("Healthy", func(t *testing.T) {
		var sawDeadline bool
		h := NewHealthHandler(checkerFunc(func(ctx context.Context) error {
			_, sawDeadline = ctx.Deadline()
			return nil
		}))
		w := httptest.NewRecorder()
		h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeResponse(t, w).Status)
		assert.True(t, sawDeadline, "readiness check should be bounded")
	})
}
