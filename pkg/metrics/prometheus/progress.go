package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/metrics"
	"github.com/marmos91/labelhub/pkg/progress"
)

// progressMetrics is the Prometheus implementation of progress.Metrics.
type progressMetrics struct {
	processed *prometheus.GaugeVec
	total     *prometheus.GaugeVec
	submitted *prometheus.GaugeVec
	ratio     prometheus.Gauge
}

// NewProgressMetrics creates a new Prometheus-backed progress.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewProgressMetrics() progress.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &progressMetrics{
		processed: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_progress_processed_images",
				Help: "Images processed per worker token",
			},
			[]string{"token"},
		),
		total: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_progress_total_images",
				Help: "Images assigned per worker token",
			},
			[]string{"token"},
		),
		submitted: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_progress_submitted",
				Help: "1 when the worker token has submitted at least once",
			},
			[]string{"token"},
		),
		ratio: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "labelhub_progress_ratio",
				Help: "Aggregate processed/total across all tokens (0.0 to 1.0)",
			},
		),
	}
}

func (m *progressMetrics) SetTokenProgress(token string, processed, total int, submitted bool) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(token).Set(float64(processed))
	m.total.WithLabelValues(token).Set(float64(total))
	v := 0.0
	if submitted {
		v = 1
	}
	m.submitted.WithLabelValues(token).Set(v)
}

func (m *progressMetrics) SetSummary(s progress.Summary) {
	if m == nil {
		return
	}
	m.ratio.Set(s.Ratio)
}
