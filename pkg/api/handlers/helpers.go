package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/progress"
)

// Coordinator is the part of coordinator.Service the handlers call.
type Coordinator interface {
	Authenticate(ctx context.Context, tok string) error
	GetShard(ctx context.Context, tok string) ([]string, error)
	ListShardPage(ctx context.Context, tok string, offset, limit int) (*coordinator.Page, error)
	FetchImage(ctx context.Context, tok, filename string) ([]byte, error)
	ReportProgress(ctx context.Context, tok string, total, processed int, ts time.Time) (progress.Record, error)
	Progress(ctx context.Context) (*progress.Report, error)
	SubmitClassifications(ctx context.Context, tok, key string, log *labels.Log) (*coordinator.SubmitResult, error)
	UndoLast(ctx context.Context, tok string) (*coordinator.UndoResult, error)
	Healthcheck(ctx context.Context) error
}

var validate = validator.New()

// maxBodyBytes caps request bodies. A full shard's log of a few thousand
// entries stays well below it.
const maxBodyBytes = 8 << 20

// decodeJSONBody decodes and validates the request body into v.
// Returns false after writing a 400 problem if either step fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	return true
}

// queryInt parses the named query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
