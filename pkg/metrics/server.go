package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/labelhub/internal/logger"
)

// Server exposes the registry on /metrics on its own port so scraping never
// competes with worker traffic.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer returns a stopped metrics server listening on port.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &Server{
		port: port,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("metrics server shutdown error: %w", shutdownErr)
		}
	})
	return err
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}
