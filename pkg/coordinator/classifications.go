package coordinator

import (
	"context"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store"
)

// MaxKeyLength bounds idempotency keys.
const MaxKeyLength = 128

// SubmitResult describes an accepted submission.
type SubmitResult struct {
	Token     string `json:"token"`
	Key       string `json:"key"`
	Accepted  int    `json:"accepted"`
	Total     int    `json:"total"`
	Duplicate bool   `json:"duplicate"`
}

// UndoResult describes the classification removed by UndoLast.
type UndoResult struct {
	Token     string          `json:"token"`
	Undone    labels.Event    `json:"undone"`
	Remaining int             `json:"remaining"`
	Progress  progress.Record `json:"progress"`
}

// SubmitClassifications appends log to tok's server-side labels. A key
// that was already applied makes the call a no-op reported as Duplicate.
func (s *Service) SubmitClassifications(ctx context.Context, tok, key string, log *labels.Log) (*SubmitResult, error) {
	o := s.begin(ctx, "submit", telemetry.SpanSubmit, tok)
	entries := 0
	if log != nil {
		entries = log.Len()
	}
	telemetry.SetAttributes(o.ctx, telemetry.IdempotencyKey(key), telemetry.Entries(entries))

	res, err := s.submit(o.ctx, tok, key, log)
	if err == nil {
		telemetry.SetAttributes(o.ctx, telemetry.Duplicate(res.Duplicate))
		if s.metrics != nil {
			s.metrics.RecordSubmission(res.Accepted, res.Duplicate)
		}
		logger.InfoCtx(o.ctx, "Classifications submitted",
			logger.KeyEntries, res.Accepted, logger.KeyTotal, res.Total, "duplicate", res.Duplicate)
	}
	return res, o.end(err)
}

func (s *Service) submit(ctx context.Context, tok, key string, log *labels.Log) (*SubmitResult, error) {
	if err := s.authorize(tok); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, lherrors.NewConfigError("idempotency key is required")
	}
	if len(key) > MaxKeyLength {
		return nil, lherrors.NewConfigError("idempotency key exceeds %d bytes", MaxKeyLength)
	}
	if log == nil || log.IsEmpty() {
		return nil, lherrors.NewConfigError("submission contains no classifications")
	}

	if !s.gate.TryRLock() {
		return nil, lherrors.NewConflictError(tok, "merge in progress, retry later")
	}
	defer s.gate.RUnlock()

	unlock := s.lock(tok)
	defer unlock()

	shard, err := s.records.GetShard(ctx, tok)
	if err != nil {
		return nil, err
	}
	for _, ev := range log.Events() {
		if ev.Worker != tok {
			return nil, lherrors.NewConfigError("entry for %s carries worker %q, expected %q", ev.Image, ev.Worker, tok)
		}
		if !shard.Contains(ev.Image) {
			return nil, lherrors.NewOutOfRangeError(tok, "image %s is not part of the shard", ev.Image)
		}
	}

	rec, err := s.loadLabels(ctx, tok)
	if err != nil {
		return nil, err
	}
	if rec.HasSubmission(key) {
		return &SubmitResult{Token: tok, Key: key, Total: rec.Log.Len(), Duplicate: true}, nil
	}

	rec.Log.Append(log)
	rec.Submissions = append(rec.Submissions, key)
	if err := s.records.PutLabels(ctx, rec); err != nil {
		return nil, err
	}
	s.markSubmitted(tok)
	return &SubmitResult{Token: tok, Key: key, Accepted: log.Len(), Total: rec.Log.Len()}, nil
}

// UndoLast removes the most recent server-side classification of tok and
// decrements its progress.
func (s *Service) UndoLast(ctx context.Context, tok string) (*UndoResult, error) {
	o := s.begin(ctx, "undo", telemetry.SpanUndo, tok)
	res, err := s.undo(o.ctx, tok)
	if err == nil {
		telemetry.SetAttributes(o.ctx, telemetry.Image(res.Undone.Image), telemetry.Category(res.Undone.Category))
		if s.metrics != nil {
			s.metrics.RecordUndo()
		}
		logger.InfoCtx(o.ctx, "Classification undone",
			logger.KeyImage, res.Undone.Image, logger.KeyCategory, res.Undone.Category)
	}
	return res, o.end(err)
}

func (s *Service) undo(ctx context.Context, tok string) (*UndoResult, error) {
	if err := s.authorize(tok); err != nil {
		return nil, err
	}
	if !s.gate.TryRLock() {
		return nil, lherrors.NewConflictError(tok, "merge in progress, retry later")
	}
	defer s.gate.RUnlock()

	unlock := s.lock(tok)
	defer unlock()

	rec, err := s.loadLabels(ctx, tok)
	if err != nil {
		return nil, err
	}
	ev, err := rec.Log.Undo()
	if err != nil {
		if lherrors.IsNoRecords(err) {
			return nil, lherrors.NewNoRecordsError(tok, "no classification to undo")
		}
		return nil, err
	}
	if err := s.records.PutLabels(ctx, rec); err != nil {
		return nil, err
	}

	res := &UndoResult{Token: tok, Undone: ev, Remaining: rec.Log.Len()}
	p, err := s.tracker.Decrement(tok)
	switch {
	case err == nil:
		if err := s.records.PutProgress(ctx, toStored(p)); err != nil {
			return nil, err
		}
		res.Progress = p
	case lherrors.IsNotFound(err):
		// Nothing reported yet; there is no progress to roll back.
	default:
		return nil, err
	}
	return res, nil
}

// loadLabels returns tok's label record, or a fresh one when none exists.
func (s *Service) loadLabels(ctx context.Context, tok string) (*store.LabelRecord, error) {
	rec, err := s.records.GetLabels(ctx, tok)
	if err == nil {
		return rec, nil
	}
	if lherrors.IsNotFound(err) {
		return &store.LabelRecord{Token: tok, Log: labels.New()}, nil
	}
	return nil, err
}
