package metrics

import "time"

// APIMetrics provides observability for the REST API.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewAPIMetrics()
//	srv := api.NewServer(cfg, svc, m)
//
//	// Without metrics
//	srv := api.NewServer(cfg, svc, nil)
type APIMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - method: HTTP method
	//   - route: chi route pattern (e.g. "/api/v1/images/{filename}"), never
	//     the raw path, to keep label cardinality bounded
	//   - status: HTTP status code written
	//   - duration: time spent in the handler chain
	RecordRequest(method, route string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight gauge.
	RecordRequestEnd()

	// RecordBytesServed records image bytes written to a worker.
	RecordBytesServed(bytes int)
}

// ObserveRequest records a completed request on m if it is non-nil.
func ObserveRequest(m APIMetrics, method, route string, status int, duration time.Duration) {
	if m != nil {
		m.RecordRequest(method, route, status, duration)
	}
}
