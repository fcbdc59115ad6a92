package handlers

import (
	"net/http"

	"github.com/marmos91/labelhub/pkg/api/middleware"
	"github.com/marmos91/labelhub/pkg/labels"
)

// IdempotencyKeyHeader carries the submission key.
const IdempotencyKeyHeader = "Idempotency-Key"

// SubmitRequest is the body of POST /api/v1/classifications.
type SubmitRequest struct {
	Log *labels.Log `json:"log" validate:"required"`
}

// ClassificationHandler handles label submission and undo.
type ClassificationHandler struct {
	svc Coordinator
}

// NewClassificationHandler creates a new classification handler.
func NewClassificationHandler(svc Coordinator) *ClassificationHandler {
	return &ClassificationHandler{svc: svc}
}

// Submit handles POST /api/v1/classifications.
//
// Replaying a key already applied returns 200 with duplicate=true.
func (h *ClassificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		BadRequest(w, IdempotencyKeyHeader+" header required")
		return
	}

	var req SubmitRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	res, err := h.svc.SubmitClassifications(r.Context(), middleware.TokenFromContext(r.Context()), key, req.Log)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, res)
}

// Undo handles POST /api/v1/classifications/undo.
func (h *ClassificationHandler) Undo(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UndoLast(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, res)
}
