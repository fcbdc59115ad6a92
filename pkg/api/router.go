package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/labelhub/pkg/api/handlers"
	"github.com/marmos91/labelhub/pkg/api/middleware"
	"github.com/marmos91/labelhub/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Middleware, outermost first: request id, real IP, log context, tracing,
// request logging, HTTP metrics, panic recovery and the request timeout.
//
// Routes:
//   - GET  /health                          - Liveness probe
//   - GET  /health/ready                    - Readiness probe
//   - POST /api/v1/auth                     - Check a token
//   - GET  /api/v1/shard                    - Caller's shard file list
//   - GET  /api/v1/shard/images             - One page of the shard
//   - GET  /api/v1/images/{filename}        - Image bytes
//   - PUT  /api/v1/progress                 - Report progress
//   - GET  /api/v1/progress                 - Progress snapshot
//   - POST /api/v1/classifications          - Submit a label log
//   - POST /api/v1/classifications/undo     - Undo the last submitted label
func NewRouter(cfg APIConfig, svc handlers.Coordinator, m metrics.APIMetrics) http.Handler {
	cfg.ApplyDefaults()

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(svc)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	authHandler := handlers.NewAuthHandler(svc)
	shardHandler := handlers.NewShardHandler(svc)
	progressHandler := handlers.NewProgressHandler(svc)
	classificationHandler := handlers.NewClassificationHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth", authHandler.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.TokenAuth(svc, handlers.WriteError))

			r.Get("/shard", shardHandler.Get)
			r.Get("/shard/images", shardHandler.ListPage)
			r.Get("/images/{filename}", shardHandler.Image)

			r.Put("/progress", progressHandler.Report)
			r.Get("/progress", progressHandler.Snapshot)

			r.Post("/classifications", classificationHandler.Submit)
			r.Post("/classifications/undo", classificationHandler.Undo)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}
