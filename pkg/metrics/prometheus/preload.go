package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/metrics"
	"github.com/marmos91/labelhub/pkg/preload"
)

// preloadMetrics is the Prometheus implementation of preload.Metrics.
type preloadMetrics struct {
	lookups          *prometheus.CounterVec
	evictions        prometheus.Counter
	prefetches       *prometheus.CounterVec
	prefetchDuration prometheus.Histogram
	size             prometheus.Gauge
}

// NewPreloadMetrics creates a new Prometheus-backed preload.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPreloadMetrics() preload.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &preloadMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_preload_lookups_total",
				Help: "Preload cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "labelhub_preload_evictions_total",
				Help: "Entries dropped because the preload cache was full",
			},
		),
		prefetches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_preload_prefetches_total",
				Help: "Background prefetches by status",
			},
			[]string{"status"}, // "success", "error"
		),
		prefetchDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labelhub_preload_prefetch_duration_milliseconds",
				Help:    "Duration of background prefetches in milliseconds",
				Buckets: []float64{5, 10, 50, 100, 250, 500, 1000, 5000},
			},
		),
		size: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "labelhub_preload_cache_entries",
				Help: "Images currently held by the preload cache",
			},
		),
	}
}

func (m *preloadMetrics) RecordHit() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *preloadMetrics) RecordMiss() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *preloadMetrics) RecordEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *preloadMetrics) RecordPrefetch(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.prefetches.WithLabelValues(status(err)).Inc()
	m.prefetchDuration.Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *preloadMetrics) SetSize(n int) {
	if m == nil {
		return
	}
	m.size.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
