package config

import (
	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/metrics"
	"github.com/marmos91/labelhub/pkg/metrics/prometheus"
	"github.com/marmos91/labelhub/pkg/origin"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store/badger"
)

// MetricsResult carries the metrics server and every collector. All fields
// are nil when metrics are disabled; consumers accept nil.
type MetricsResult struct {
	Server      *metrics.Server
	API         metrics.APIMetrics
	Coordinator coordinator.Metrics
	Origin      origin.Metrics
	Progress    progress.Metrics
	Badger      badger.Metrics
}

// InitializeMetrics sets up the Prometheus registry when metrics are enabled.
// Call it before building any component that takes a collector.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:      metrics.NewServer(cfg.Metrics.Port),
		API:         prometheus.NewAPIMetrics(),
		Coordinator: prometheus.NewCoordinatorMetrics(),
		Origin:      prometheus.NewOriginMetrics(),
		Progress:    prometheus.NewProgressMetrics(),
		Badger:      prometheus.NewBadgerMetrics(),
	}
}
