package coordinator

import (
	"context"
	"time"

	"github.com/marmos91/labelhub/internal/telemetry"
	"github.com/marmos91/labelhub/pkg/progress"
)

// ReportProgress replaces tok's progress record and persists it. A zero ts
// means now.
func (s *Service) ReportProgress(ctx context.Context, tok string, total, processed int, ts time.Time) (progress.Record, error) {
	o := s.begin(ctx, "report_progress", telemetry.SpanReportProgress, tok)
	telemetry.SetAttributes(o.ctx, telemetry.Progress(processed, total)...)
	rec, err := s.reportProgress(o.ctx, tok, total, processed, ts)
	return rec, o.end(err)
}

func (s *Service) reportProgress(ctx context.Context, tok string, total, processed int, ts time.Time) (progress.Record, error) {
	if err := s.authorize(tok); err != nil {
		return progress.Record{}, err
	}
	if ts.IsZero() {
		ts = s.now()
	}

	unlock := s.lock(tok)
	defer unlock()

	rec := s.tracker.Upsert(tok, total, processed, ts)
	if err := s.records.PutProgress(ctx, toStored(rec)); err != nil {
		return progress.Record{}, err
	}
	return rec, nil
}

// Progress returns every token's progress plus whether it has submitted.
// It implements progress.Source for the dashboard.
func (s *Service) Progress(ctx context.Context) (*progress.Report, error) {
	o := s.begin(ctx, "progress", telemetry.SpanProgress, "")
	report, err := s.progress(o.ctx)
	return report, o.end(err)
}

func (s *Service) progress(_ context.Context) (*progress.Report, error) {
	snap := s.tracker.Snapshot()
	rows := make([]progress.Row, 0, len(snap))

	s.submittedMu.RLock()
	for _, r := range snap {
		rows = append(rows, progress.Row{Record: r, Submitted: s.submitted[r.Token]})
	}
	s.submittedMu.RUnlock()

	return &progress.Report{
		Summary: s.tracker.Aggregate(),
		Rows:    rows,
		At:      s.now().UTC(),
	}, nil
}

func (s *Service) markSubmitted(tok string) {
	s.submittedMu.Lock()
	s.submitted[tok] = true
	s.submittedMu.Unlock()
}

var _ progress.Source = (*Service)(nil)
