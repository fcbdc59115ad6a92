package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/metrics"
)

// coordinatorMetrics is the Prometheus implementation of coordinator.Metrics.
type coordinatorMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	submissions       *prometheus.CounterVec
	entriesAccepted   prometheus.Counter
	undos             prometheus.Counter
	mergeDuration     prometheus.Histogram
	mergeImages       *prometheus.GaugeVec
}

// NewCoordinatorMetrics creates a new Prometheus-backed coordinator.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCoordinatorMetrics() coordinator.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &coordinatorMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_coordinator_operations_total",
				Help: "Coordinator operations by operation and result code",
			},
			[]string{"operation", "code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labelhub_coordinator_operation_duration_milliseconds",
				Help:    "Duration of coordinator operations in milliseconds",
				Buckets: []float64{0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"operation"},
		),
		submissions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_submissions_total",
				Help: "Accepted classification submissions, split by whether the key was a replay",
			},
			[]string{"duplicate"},
		),
		entriesAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "labelhub_classifications_accepted_total",
				Help: "Classification entries appended to server-side logs",
			},
		),
		undos: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "labelhub_undos_total",
				Help: "Classifications removed through undo",
			},
		),
		mergeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labelhub_merge_duration_milliseconds",
				Help:    "Duration of merges in milliseconds",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 30000},
			},
		),
		mergeImages: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labelhub_merge_images",
				Help: "Images in the last merge result by set",
			},
			[]string{"set"}, // "merged", "conflict", "consistent"
		),
	}
}

func (m *coordinatorMetrics) RecordOperation(operation string, duration time.Duration, code string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, code).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *coordinatorMetrics) RecordSubmission(entries int, duplicate bool) {
	if m == nil {
		return
	}
	dup := "false"
	if duplicate {
		dup = "true"
	}
	m.submissions.WithLabelValues(dup).Inc()
	m.entriesAccepted.Add(float64(entries))
}

func (m *coordinatorMetrics) RecordUndo() {
	if m == nil {
		return
	}
	m.undos.Inc()
}

func (m *coordinatorMetrics) RecordMerge(duration time.Duration, merged, conflicts, consistent int) {
	if m == nil {
		return
	}
	m.mergeDuration.Observe(float64(duration.Microseconds()) / 1000.0)
	m.mergeImages.WithLabelValues("merged").Set(float64(merged))
	m.mergeImages.WithLabelValues("conflict").Set(float64(conflicts))
	m.mergeImages.WithLabelValues("consistent").Set(float64(consistent))
}
