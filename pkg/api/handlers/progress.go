package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/labelhub/pkg/api/middleware"
)

// ProgressRequest is the body of PUT /api/v1/progress. It replaces the
// previous report for the token.
type ProgressRequest struct {
	TotalImages     int        `json:"total_images" validate:"gte=0"`
	ProcessedImages int        `json:"processed_images" validate:"gte=0"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// ProgressHandler handles progress reports and the progress snapshot.
type ProgressHandler struct {
	svc Coordinator
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(svc Coordinator) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Report handles PUT /api/v1/progress.
func (h *ProgressHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	rec, err := h.svc.ReportProgress(r.Context(), middleware.TokenFromContext(r.Context()),
		req.TotalImages, req.ProcessedImages, ts)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, rec)
}

// Snapshot handles GET /api/v1/progress.
func (h *ProgressHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Progress(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, report)
}
