package coordinator

import (
	"context"
	"time"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/merge"
	"github.com/marmos91/labelhub/pkg/origin"
	"github.com/marmos91/labelhub/pkg/partition"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store"
)

// DistributeResult summarizes a distribution.
type DistributeResult struct {
	Files  int                    `json:"files"`
	Tokens int                    `json:"tokens"`
	Shards []partition.Assignment `json:"shards"`
}

// Sizes returns the shard sizes in token order.
func (r *DistributeResult) Sizes() []int {
	return partition.Sizes(r.Shards)
}

// Distribute partitions the origin's images over every allow-listed token
// and persists one shard and a zeroed progress record per token.
//
// An existing distribution is only replaced when force is set; labels
// already submitted are left untouched.
func (s *Service) Distribute(ctx context.Context, force bool) (*DistributeResult, error) {
	o := s.begin(ctx, "distribute", telemetry.SpanDistribute, "")
	res, err := s.distribute(o.ctx, force)
	if err == nil {
		logger.InfoCtx(o.ctx, "Corpus distributed",
			"files", res.Files, "tokens", res.Tokens, "sizes", res.Sizes())
	}
	return res, o.end(err)
}

func (s *Service) distribute(ctx context.Context, force bool) (*DistributeResult, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if !force {
		_, err := s.records.GetCorpus(ctx)
		switch {
		case err == nil:
			return nil, lherrors.NewConflictError("", "corpus already distributed; use force to redistribute")
		case !lherrors.IsNotFound(err):
			return nil, err
		}
	}

	names, err := s.origin.List(ctx)
	if err != nil {
		return nil, err
	}
	files := origin.FilterImages(names)
	tokens := s.tokens.Tokens()

	plan, err := partition.Plan(files, tokens)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	restored := make([]progress.Record, 0, len(plan))
	for _, a := range plan {
		if err := s.records.PutShard(ctx, &store.ShardRecord{Token: a.Token, Files: a.Files, CreatedAt: now}); err != nil {
			return nil, err
		}
		p := progress.Record{Token: a.Token, Total: len(a.Files), LastUpdate: now}
		if err := s.records.PutProgress(ctx, toStored(p)); err != nil {
			return nil, err
		}
		restored = append(restored, p)
	}
	if err := s.records.PutCorpus(ctx, &store.CorpusRecord{Files: files, Tokens: tokens, DistributedAt: now}); err != nil {
		return nil, err
	}
	s.tracker.Load(restored)

	return &DistributeResult{Files: len(files), Tokens: len(tokens), Shards: plan}, nil
}

// RunMerge merges every token's labels. It waits for in-flight submissions
// and blocks new ones until it returns.
func (s *Service) RunMerge(ctx context.Context) (*merge.Result, error) {
	o := s.begin(ctx, "merge", telemetry.SpanMerge, "")

	s.gate.Lock()
	start := time.Now()
	res, err := merge.Merge(o.ctx, s.records)
	s.gate.Unlock()

	if err == nil {
		telemetry.SetAttributes(o.ctx, telemetry.Conflicts(len(res.Conflict)))
		if s.metrics != nil {
			s.metrics.RecordMerge(time.Since(start), len(res.Merged), len(res.Conflict), len(res.Consistent))
		}
	}
	return res, o.end(err)
}
