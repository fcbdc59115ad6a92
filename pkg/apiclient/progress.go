package apiclient

import (
	"context"
	"strconv"
	"time"

	"github.com/marmos91/labelhub/pkg/progress"
)

// ProgressRequest is the body of PUT /api/v1/progress.
type ProgressRequest struct {
	TotalImages     int        `json:"total_images"`
	ProcessedImages int        `json:"processed_images"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// ReportProgress replaces the token's progress on the server. A zero ts
// lets the server stamp the report.
func (c *Client) ReportProgress(ctx context.Context, total, processed int, ts time.Time) (*progress.Record, error) {
	req := ProgressRequest{TotalImages: total, ProcessedImages: processed}
	if !ts.IsZero() {
		req.Timestamp = &ts
	}
	return updateResource[progress.Record](ctx, c, "/api/v1/progress", req)
}

// Progress returns the progress of every worker.
func (c *Client) Progress(ctx context.Context) (*progress.Report, error) {
	return getResource[progress.Report](ctx, c, "/api/v1/progress")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
