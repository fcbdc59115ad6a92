package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/labelhub/pkg/api/middleware"
)

// ShardResponse is the full file list of a worker's shard.
type ShardResponse struct {
	Token string   `json:"token"`
	Total int      `json:"total"`
	Files []string `json:"files"`
}

// ShardHandler serves shard listings and image bytes. Every route is
// behind TokenAuth.
type ShardHandler struct {
	svc Coordinator
}

// NewShardHandler creates a new shard handler.
func NewShardHandler(svc Coordinator) *ShardHandler {
	return &ShardHandler{svc: svc}
}

// Get handles GET /api/v1/shard.
func (h *ShardHandler) Get(w http.ResponseWriter, r *http.Request) {
	tok := middleware.TokenFromContext(r.Context())

	files, err := h.svc.GetShard(r.Context(), tok)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, ShardResponse{Token: tok, Total: len(files), Files: files})
}

// ListPage handles GET /api/v1/shard/images?offset=&limit=.
func (h *ShardHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		BadRequest(w, "offset must be an integer")
		return
	}
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		BadRequest(w, "limit must be an integer")
		return
	}

	page, err := h.svc.ListShardPage(r.Context(), middleware.TokenFromContext(r.Context()), offset, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSONOK(w, page)
}

// Image handles GET /api/v1/images/{filename}. The content type is sniffed
// from the bytes.
func (h *ShardHandler) Image(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	data, err := h.svc.FetchImage(r.Context(), middleware.TokenFromContext(r.Context()), name)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
