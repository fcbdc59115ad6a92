package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/api/handlers"
	"github.com/marmos91/labelhub/pkg/metrics"
)

// Server provides the coordinator's HTTP API.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	handler      http.Handler
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server in a stopped state. Call Start
// to begin serving requests.
//
// Defaults are applied here so the server works when created directly
// (e.g., in tests). m may be nil.
func NewServer(config APIConfig, svc handlers.Coordinator, m metrics.APIMetrics) *Server {
	config.ApplyDefaults()

	router := NewRouter(config, svc, m)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return &Server{
		server:  server,
		handler: router,
		config:  config,
	}
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"api", fmt.Sprintf("http://localhost:%d/api/v1", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// The cancelled ctx would abort shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
