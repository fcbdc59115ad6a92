// Package prometheus provides the Prometheus implementations of the metrics
// interfaces declared by labelhub packages.
//
// Every constructor returns nil when metrics are disabled (InitRegistry not
// called). Consumers accept nil and skip collection.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/labelhub/pkg/metrics"
)

// apiMetrics is the Prometheus implementation of metrics.APIMetrics.
type apiMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	bytesServed     prometheus.Counter
}

// NewAPIMetrics creates a new Prometheus-backed APIMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAPIMetrics() metrics.APIMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &apiMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "labelhub_api_requests_total",
				Help: "Total number of API requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "labelhub_api_request_duration_milliseconds",
				Help: "Duration of API requests in milliseconds",
				Buckets: []float64{
					1,    // 1ms - auth, progress
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms - shard listing
					100,  // 100ms - image fetch from local disk
					500,  // 500ms - image fetch from S3
					1000, // 1s
					5000, // 5s - large submissions
				},
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "labelhub_api_requests_in_flight",
				Help: "Number of API requests currently being served",
			},
		),
		bytesServed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "labelhub_api_image_bytes_served_total",
				Help: "Total image bytes sent to workers",
			},
		),
	}
}

func (m *apiMetrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *apiMetrics) RecordRequestStart() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *apiMetrics) RecordRequestEnd() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *apiMetrics) RecordBytesServed(bytes int) {
	if m == nil {
		return
	}
	m.bytesServed.Add(float64(bytes))
}
