package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/metrics"
	"github.com/marmos91/labelhub/pkg/origin"
)

// originMetrics is the Prometheus implementation of origin.Metrics.
type originMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesRead         *prometheus.CounterVec
}

// NewOriginMetrics creates a new Prometheus-backed origin.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewOriginMetrics() origin.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &originMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_origin_operations_total",
				Help: "Total number of image origin operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "labelhub_origin_operation_duration_milliseconds",
				Help: "Duration of image origin operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms - local disk
					10,    // 10ms
					50,    // 50ms - S3 small objects
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - S3 listing
					5000,  // 5s
					30000, // 30s - very large buckets
				},
			},
			[]string{"backend", "operation"},
		),
		bytesRead: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_origin_bytes_read_total",
				Help: "Total image bytes read from the origin",
			},
			[]string{"backend"},
		),
	}
}

func (m *originMetrics) ObserveOperation(backend, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(backend, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *originMetrics) RecordBytes(backend string, bytes int) {
	if m == nil {
		return
	}
	m.bytesRead.WithLabelValues(backend).Add(float64(bytes))
}
