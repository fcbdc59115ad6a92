package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	"github.com/marmos91/labelhub/pkg/metrics"
)

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// routePattern returns the chi route template (e.g. /api/v1/images/{filename})
// so metrics and spans are not keyed by raw paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// RequestContext seeds the logger LogContext with the request id and the
// client IP. Must run after chi's RequestID and RealIP.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc := logger.NewLogContext(chimw.GetReqID(r.Context()), r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), lc)))
	})
}

// RequestLogger logs every request using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}

// Tracing continues the caller's trace from the request headers and opens
// a server span per request.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := telemetry.ExtractHTTP(r.Context(), r.Header)
		ctx, span := telemetry.StartServerSpan(ctx, r.Method, r.URL.Path,
			telemetry.RequestID(chimw.GetReqID(ctx)),
			telemetry.ClientIP(r.RemoteAddr),
		)
		defer span.End()

		if lc := logger.FromContext(ctx); lc != nil {
			ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx)))
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetName("HTTP " + r.Method + " " + routePattern(r))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}

// Metrics records request counts, latency and bytes served per route. A nil
// m makes it a pass-through.
func Metrics(m metrics.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RecordRequestStart()
			defer m.RecordRequestEnd()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			metrics.ObserveRequest(m, r.Method, route, status, time.Since(start))
			if status == http.StatusOK && strings.HasPrefix(route, "/api/v1/images/") {
				m.RecordBytesServed(ww.BytesWritten())
			}
		})
	}
}
