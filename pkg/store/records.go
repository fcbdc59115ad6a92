package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
)

// SchemaVersion is written into every record. Records with any other
// version are rejected as DataFormatError.
const SchemaVersion = 1

// ShardRecord is the immutable file list assigned to one token.
type ShardRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Token         string    `json:"token"`
	Files         []string  `json:"files"`
	CreatedAt     time.Time `json:"created_at"`
}

// Contains reports whether name is part of the shard.
func (s *ShardRecord) Contains(name string) bool {
	for _, f := range s.Files {
		if f == name {
			return true
		}
	}
	return false
}

// ProgressRecord is the last progress a worker reported.
type ProgressRecord struct {
	SchemaVersion   int       `json:"schema_version"`
	Token           string    `json:"token"`
	TotalImages     int       `json:"total_images"`
	ProcessedImages int       `json:"processed_images"`
	LastUpdate      time.Time `json:"last_update"`
}

// LabelRecord is a token's classification log plus submission bookkeeping.
//
// On the server Submissions holds the idempotency keys already applied. On
// a worker PendingKey and PendingCount freeze the batch not yet
// acknowledged: the first PendingCount events of Log, always sent under
// PendingKey. Submitted counts the entries the server has acknowledged.
type LabelRecord struct {
	SchemaVersion int         `json:"schema_version"`
	Token         string      `json:"token"`
	Log           *labels.Log `json:"log"`
	Submissions   []string    `json:"submissions,omitempty"`
	PendingKey    string      `json:"pending_key,omitempty"`
	PendingCount  int         `json:"pending_count,omitempty"`
	Submitted     int         `json:"submitted,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// HasSubmission reports whether key was already applied.
func (r *LabelRecord) HasSubmission(key string) bool {
	for _, k := range r.Submissions {
		if k == key {
			return true
		}
	}
	return false
}

// CorpusRecord is the full ordered image list and the tokens it was
// distributed to.
type CorpusRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Files         []string  `json:"files"`
	Tokens        []string  `json:"tokens"`
	DistributedAt time.Time `json:"distributed_at"`
}

type versioned interface {
	version() int
	setVersion()
}

func (r *ShardRecord) version() int    { return r.SchemaVersion }
func (r *ShardRecord) setVersion()     { r.SchemaVersion = SchemaVersion }
func (r *ProgressRecord) version() int { return r.SchemaVersion }
func (r *ProgressRecord) setVersion()  { r.SchemaVersion = SchemaVersion }
func (r *LabelRecord) version() int    { return r.SchemaVersion }
func (r *LabelRecord) setVersion()     { r.SchemaVersion = SchemaVersion }
func (r *CorpusRecord) version() int   { return r.SchemaVersion }
func (r *CorpusRecord) setVersion()    { r.SchemaVersion = SchemaVersion }

// Records is the typed view over a Store. Decoding happens here and only
// here.
//
// Errors: a missing record is a NotFoundError, an undecodable one a
// DataFormatError. Backend failures are returned wrapped and unclassified
// so the caller decides how to surface them.
type Records struct {
	kv Store
}

// NewRecords wraps kv.
func NewRecords(kv Store) *Records {
	return &Records{kv: kv}
}

// KV returns the underlying store.
func (r *Records) KV() Store {
	return r.kv
}

func get[T any, PT interface {
	*T
	versioned
}](ctx context.Context, kv Store, kind Kind, tok string) (PT, error) {
	data, err := kv.Get(ctx, kind, tok)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, lherrors.NewNotFoundError(tok, string(kind))
		}
		return nil, fmt.Errorf("get %s record: %w", kind, err)
	}

	rec := PT(new(T))
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, lherrors.NewDataFormatError(string(kind)+" record", err)
	}
	if v := rec.version(); v != SchemaVersion {
		return nil, lherrors.NewDataFormatError(string(kind)+" record",
			fmt.Errorf("unsupported schema version %d", v))
	}
	return rec, nil
}

func put(ctx context.Context, kv Store, kind Kind, tok string, rec versioned) error {
	rec.setVersion()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", kind, err)
	}
	if err := kv.Put(ctx, kind, tok, data); err != nil {
		return fmt.Errorf("put %s record: %w", kind, err)
	}
	return nil
}

// GetShard returns the shard of tok.
func (r *Records) GetShard(ctx context.Context, tok string) (*ShardRecord, error) {
	return get[ShardRecord](ctx, r.kv, KindShard, tok)
}

// PutShard stores rec under rec.Token.
func (r *Records) PutShard(ctx context.Context, rec *ShardRecord) error {
	return put(ctx, r.kv, KindShard, rec.Token, rec)
}

// ListShardTokens returns the tokens that have a shard.
func (r *Records) ListShardTokens(ctx context.Context) ([]string, error) {
	return r.kv.List(ctx, KindShard)
}

// GetProgress returns the progress record of tok.
func (r *Records) GetProgress(ctx context.Context, tok string) (*ProgressRecord, error) {
	return get[ProgressRecord](ctx, r.kv, KindProgress, tok)
}

// PutProgress stores rec under rec.Token.
func (r *Records) PutProgress(ctx context.Context, rec *ProgressRecord) error {
	return put(ctx, r.kv, KindProgress, rec.Token, rec)
}

// ListProgress returns every progress record, ordered by token.
func (r *Records) ListProgress(ctx context.Context) ([]*ProgressRecord, error) {
	tokens, err := r.kv.List(ctx, KindProgress)
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	out := make([]*ProgressRecord, 0, len(tokens))
	for _, tok := range tokens {
		rec, err := r.GetProgress(ctx, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetLabels returns the label record of tok. A record without a log gets
// an empty one.
func (r *Records) GetLabels(ctx context.Context, tok string) (*LabelRecord, error) {
	rec, err := get[LabelRecord](ctx, r.kv, KindLabels, tok)
	if err != nil {
		return nil, err
	}
	if rec.Log == nil {
		rec.Log = labels.New()
	}
	return rec, nil
}

// PutLabels stores rec under rec.Token and stamps UpdatedAt.
func (r *Records) PutLabels(ctx context.Context, rec *LabelRecord) error {
	if rec.Log == nil {
		rec.Log = labels.New()
	}
	rec.UpdatedAt = time.Now().UTC()
	return put(ctx, r.kv, KindLabels, rec.Token, rec)
}

// DeleteLabels removes the label record of tok.
func (r *Records) DeleteLabels(ctx context.Context, tok string) error {
	if err := r.kv.Delete(ctx, KindLabels, tok); err != nil {
		return fmt.Errorf("delete labels record: %w", err)
	}
	return nil
}

// ListLabelTokens returns the tokens that have a label record, sorted.
func (r *Records) ListLabelTokens(ctx context.Context) ([]string, error) {
	tokens, err := r.kv.List(ctx, KindLabels)
	if err != nil {
		return nil, fmt.Errorf("list labels records: %w", err)
	}
	return tokens, nil
}

// GetCorpus returns the corpus record.
func (r *Records) GetCorpus(ctx context.Context) (*CorpusRecord, error) {
	return get[CorpusRecord](ctx, r.kv, KindCorpus, CorpusKey)
}

// PutCorpus stores the corpus record.
func (r *Records) PutCorpus(ctx context.Context, rec *CorpusRecord) error {
	return put(ctx, r.kv, KindCorpus, CorpusKey, rec)
}
