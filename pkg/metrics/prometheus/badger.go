package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/metrics"
	"github.com/marmos91/labelhub/pkg/store/badger"
)

// badgerMetrics is the Prometheus implementation of badger.Metrics.
type badgerMetrics struct {
	cacheHitRatio *prometheus.GaugeVec
	cacheMisses   *prometheus.GaugeVec
	cacheHits     *prometheus.GaugeVec
	lsmSize       prometheus.Gauge
	vlogSize      prometheus.Gauge
}

// NewBadgerMetrics creates a new Prometheus-backed BadgerDB metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBadgerMetrics() badger.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &badgerMetrics{
		cacheHitRatio: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_badger_cache_hit_ratio",
				Help: "BadgerDB cache hit ratio (0.0 to 1.0) by cache type",
			},
			[]string{"cache_type"}, // "block", "index"
		),
		cacheMisses: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_badger_cache_misses",
				Help: "BadgerDB cache misses since open by cache type",
			},
			[]string{"cache_type"},
		),
		cacheHits: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_badger_cache_hits",
				Help: "BadgerDB cache hits since open by cache type",
			},
			[]string{"cache_type"},
		),
		lsmSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "labelhub_badger_lsm_size_bytes",
				Help: "Size of the BadgerDB LSM tree in bytes",
			},
		),
		vlogSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "labelhub_badger_vlog_size_bytes",
				Help: "Size of the BadgerDB value log in bytes",
			},
		),
	}
}

// RecordCacheStats records hit/miss counters and ratio for a cache type.
func (m *badgerMetrics) RecordCacheStats(cacheType string, hits, misses uint64, ratio float64) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cacheType).Set(float64(hits))
	m.cacheMisses.WithLabelValues(cacheType).Set(float64(misses))
	m.cacheHitRatio.WithLabelValues(cacheType).Set(ratio)
}

// RecordSize records the on-disk size of the LSM tree and value log.
func (m *badgerMetrics) RecordSize(lsm, vlog int64) {
	if m == nil {
		return
	}
	m.lsmSize.Set(float64(lsm))
	m.vlogSize.Set(float64(vlog))
}
