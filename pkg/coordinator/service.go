// Package coordinator implements the server side of a labeling run: token
// checks, shard and image serving, progress reports, label submission and
// undo, distribution and merge.
//
// Concurrency model:
//   - mutations for one token are serialized by a per-token mutex; distinct
//     tokens never contend
//   - submissions and undos hold the merge gate shared, merges hold it
//     exclusively, so a merge never observes a half-applied submission
//
// Errors caused by the caller (ConfigError, AuthError, NotFoundError,
// OutOfRangeError, ConflictWithExistingError, NoRecordsError) are returned
// unchanged. Everything else is logged with context and surfaced as a
// generic StorageError.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/origin"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/token"
)

// Metrics observes coordinator operations. A nil Metrics disables
// collection.
type Metrics interface {
	// RecordOperation is called once per operation. code is "ok" or the
	// error code name.
	RecordOperation(operation string, duration time.Duration, code string)
	RecordSubmission(entries int, duplicate bool)
	RecordUndo()
	RecordMerge(duration time.Duration, merged, conflicts, consistent int)
}

// Config wires a Service to its dependencies.
type Config struct {
	Records *store.Records
	Tracker *progress.Tracker
	Tokens  *token.AllowList
	Origin  origin.Origin
	Metrics Metrics
}

// Service is the coordinator. It is safe for concurrent use.
type Service struct {
	records *store.Records
	tracker *progress.Tracker
	tokens  *token.AllowList
	origin  origin.Origin
	metrics Metrics

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	gate sync.RWMutex

	// submitted holds the tokens with at least one applied submission.
	submittedMu sync.RWMutex
	submitted   map[string]bool

	now func() time.Time
}

// New validates cfg and returns a Service. A nil Tracker gets a fresh one.
func New(cfg Config) (*Service, error) {
	if cfg.Records == nil {
		return nil, fmt.Errorf("coordinator: records store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("coordinator: token allow-list is required")
	}
	if cfg.Origin == nil {
		return nil, fmt.Errorf("coordinator: image origin is required")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = progress.NewTracker()
	}
	return &Service{
		records: cfg.Records,
		tracker: cfg.Tracker,
		tokens:  cfg.Tokens,
		origin:  cfg.Origin,
		metrics: cfg.Metrics,
		locks:   make(map[string]*sync.Mutex),

		submitted: make(map[string]bool),
		now:       time.Now,
	}, nil
}

// Tracker returns the in-memory progress tracker.
func (s *Service) Tracker() *progress.Tracker {
	return s.tracker
}

// Restore loads persisted progress into the tracker and notes which tokens
// have submitted. Call once at startup.
func (s *Service) Restore(ctx context.Context) error {
	recs, err := s.records.ListProgress(ctx)
	if err != nil {
		return fmt.Errorf("restore progress: %w", err)
	}
	loaded := make([]progress.Record, 0, len(recs))
	for _, r := range recs {
		loaded = append(loaded, fromStored(r))
	}

	tokens, err := s.records.ListLabelTokens(ctx)
	if err != nil {
		return fmt.Errorf("restore submissions: %w", err)
	}
	submitted := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		rec, err := s.records.GetLabels(ctx, tok)
		if err != nil {
			return fmt.Errorf("restore submissions of %s: %w", tok, err)
		}
		if len(rec.Submissions) > 0 {
			submitted[tok] = true
		}
	}

	s.tracker.Load(loaded)
	s.submittedMu.Lock()
	s.submitted = submitted
	s.submittedMu.Unlock()
	logger.Info("Progress restored", "tokens", len(loaded), "submitted", len(submitted))
	return nil
}

// Healthcheck verifies the record store and the image origin.
func (s *Service) Healthcheck(ctx context.Context) error {
	if err := s.records.KV().Healthcheck(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.origin.Healthcheck(ctx); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	return nil
}

// lock serializes mutations on one token and returns the unlock func.
func (s *Service) lock(tok string) func() {
	s.locksMu.Lock()
	m, ok := s.locks[tok]
	if !ok {
		m = &sync.Mutex{}
		s.locks[tok] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// authorize checks syntax and allow-list membership.
func (s *Service) authorize(tok string) error {
	if err := token.Validate(tok); err != nil {
		return err
	}
	if !s.tokens.Contains(tok) {
		return lherrors.NewAuthError(tok)
	}
	return nil
}

// op tracks one operation: span, log context, metrics and error mapping.
type op struct {
	s     *Service
	name  string
	tok   string
	start time.Time
	ctx   context.Context
	span  trace.Span
}

func (s *Service) begin(ctx context.Context, name, spanName, tok string) *op {
	ctx, span := telemetry.StartCoordinatorSpan(ctx, spanName, tok)
	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = &logger.LogContext{StartTime: time.Now()}
	}
	lc = lc.WithOperation(name).WithTrace(telemetry.TraceID(ctx))
	if tok != "" {
		lc = lc.WithToken(tok)
	}
	ctx = logger.WithContext(ctx, lc)
	return &op{s: s, name: name, tok: tok, start: time.Now(), ctx: ctx, span: span}
}

// end closes the span and returns err mapped to the public taxonomy.
func (o *op) end(err error) error {
	defer o.span.End()

	code := "ok"
	if err != nil {
		if !lherrors.IsInputError(err) {
			logger.ErrorCtx(o.ctx, "Coordinator operation failed",
				logger.KeyOperation, o.name, logger.KeyError, err)
			err = lherrors.NewStorageError(err)
		}
		code = lherrors.CodeOf(err).String()
		telemetry.RecordError(o.ctx, err)
	}
	if o.s.metrics != nil {
		o.s.metrics.RecordOperation(o.name, time.Since(o.start), code)
	}
	return err
}

func fromStored(r *store.ProgressRecord) progress.Record {
	return progress.Record{
		Token:      r.Token,
		Total:      r.TotalImages,
		Processed:  r.ProcessedImages,
		LastUpdate: r.LastUpdate,
	}
}

func toStored(r progress.Record) *store.ProgressRecord {
	return &store.ProgressRecord{
		Token:           r.Token,
		TotalImages:     r.Total,
		ProcessedImages: r.Processed,
		LastUpdate:      r.LastUpdate,
	}
}
