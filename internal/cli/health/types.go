// Package health holds the shape of the server's health responses.
package health

import "time"

const StatusHealthy = "healthy"

// Response is the body of GET /health and GET /health/ready.
type Response struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Data      struct {
		Service string `json:"service,omitempty" yaml:"service,omitempty"`
		Latency string `json:"latency,omitempty" yaml:"latency,omitempty"`
	} `json:"data" yaml:"data"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *Response) Healthy() bool {
	return r != nil && r.Status == StatusHealthy
}
