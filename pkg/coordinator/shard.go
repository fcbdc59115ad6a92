package coordinator

import (
	"context"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/origin"
)

// Paging limits for ListShardPage.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 500
)

// Page is one slice of a shard listing.
type Page struct {
	Token   string   `json:"token"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
	Files   []string `json:"files"`
	HasMore bool     `json:"has_more"`
}

// Authenticate accepts tok when it is well-formed and on the allow-list.
func (s *Service) Authenticate(ctx context.Context, tok string) error {
	o := s.begin(ctx, "authenticate", telemetry.SpanAuthenticate, tok)
	err := s.authorize(tok)
	if err == nil {
		logger.DebugCtx(o.ctx, "Token accepted")
	}
	return o.end(err)
}

// GetShard returns the ordered file list assigned to tok.
func (s *Service) GetShard(ctx context.Context, tok string) ([]string, error) {
	o := s.begin(ctx, "get_shard", telemetry.SpanGetShard, tok)
	files, err := s.getShard(o.ctx, tok)
	if err == nil {
		telemetry.SetAttributes(o.ctx, telemetry.ShardSize(len(files)))
	}
	return files, o.end(err)
}

func (s *Service) getShard(ctx context.Context, tok string) ([]string, error) {
	if err := s.authorize(tok); err != nil {
		return nil, err
	}
	rec, err := s.records.GetShard(ctx, tok)
	if err != nil {
		return nil, err
	}
	return rec.Files, nil
}

// ListShardPage returns files[offset:offset+limit] of tok's shard. A limit
// of zero means DefaultPageLimit.
func (s *Service) ListShardPage(ctx context.Context, tok string, offset, limit int) (*Page, error) {
	o := s.begin(ctx, "list_shard_page", telemetry.SpanListShardPage, tok)
	telemetry.SetAttributes(o.ctx, telemetry.Page(offset, limit)...)
	page, err := s.listShardPage(o.ctx, tok, offset, limit)
	return page, o.end(err)
}

func (s *Service) listShardPage(ctx context.Context, tok string, offset, limit int) (*Page, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		return nil, lherrors.NewConfigError("offset must be >= 0, got %d", offset)
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, lherrors.NewConfigError("limit must be between 1 and %d, got %d", MaxPageLimit, limit)
	}

	files, err := s.getShard(ctx, tok)
	if err != nil {
		return nil, err
	}

	page := &Page{Token: tok, Offset: offset, Limit: limit, Total: len(files), Files: []string{}}
	if offset < len(files) {
		end := min(offset+limit, len(files))
		page.Files = append(page.Files, files[offset:end]...)
		page.HasMore = end < len(files)
	}
	return page, nil
}

// FetchImage returns the bytes of filename, which must be part of tok's
// shard.
func (s *Service) FetchImage(ctx context.Context, tok, filename string) ([]byte, error) {
	o := s.begin(ctx, "fetch_image", telemetry.SpanFetchImage, tok)
	telemetry.SetAttributes(o.ctx, telemetry.Image(filename))
	data, err := s.fetchImage(o.ctx, tok, filename)
	return data, o.end(err)
}

func (s *Service) fetchImage(ctx context.Context, tok, filename string) ([]byte, error) {
	if err := origin.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if err := s.authorize(tok); err != nil {
		return nil, err
	}
	shard, err := s.records.GetShard(ctx, tok)
	if err != nil {
		return nil, err
	}
	if !shard.Contains(filename) {
		return nil, lherrors.NewNotFoundError(tok, "image "+filename)
	}
	return s.origin.Open(ctx, filename)
}
