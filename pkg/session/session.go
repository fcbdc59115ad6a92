// Package session is the worker side of a labeling run.
//
// A Session owns everything one worker needs while walking its shard: the
// token, the shard, a cursor into it, the preload cache and the local label
// log. The log is persisted to a local store after every change so a
// restarted worker resumes where it stopped.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/apiclient"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/preload"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store"
)

// ErrCompleted is returned by Current once every image of the shard has
// been labeled.
var ErrCompleted = errors.New("shard completed")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session closed")

// Remote is the part of the API a session talks to. *apiclient.Client
// implements it; the client must carry the session's token.
type Remote interface {
	Authenticate(ctx context.Context) error
	GetShard(ctx context.Context) ([]string, error)
	FetchImage(ctx context.Context, name string) ([]byte, error)
	ReportProgress(ctx context.Context, total, processed int, ts time.Time) (*progress.Record, error)
	Submit(ctx context.Context, key string, log *labels.Log) (*apiclient.SubmitResult, error)
	UndoLast(ctx context.Context) (*apiclient.UndoResult, error)
}

// Image is the image under the cursor.
type Image struct {
	Name  string
	Index int // zero-based position in the shard
	Total int
	Data  []byte
}

// Option configures Open.
type Option func(*options)

type options struct {
	capacity   int
	metrics    preload.Metrics
	now        func() time.Time
	noPrefetch bool
}

// WithCacheCapacity sets how many images are prefetched ahead.
func WithCacheCapacity(k int) Option {
	return func(o *options) { o.capacity = k }
}

// WithCacheMetrics records preload cache behaviour.
func WithCacheMetrics(m preload.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithoutPrefetch disables background image loading. Current then fetches
// on demand. Used by commands that never look at images.
func WithoutPrefetch() Option {
	return func(o *options) { o.noPrefetch = true }
}

// WithClock overrides time.Now for classification timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Session is the per-worker context object. It is safe for concurrent use,
// though a worker normally drives it from one goroutine.
type Session struct {
	token  string
	remote Remote
	local  *store.Records
	now    func() time.Time

	// ctx bounds every prefetch; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	shard  []string
	cursor int
	rec    *store.LabelRecord
	cache  *preload.Cache
	opts   options
	closed bool
}

// Open authenticates tok, fetches its shard and loads the local log.
//
// The cursor resumes at min(submitted+log.Len(), len(shard)), so a worker
// that restarts continues with the first unlabeled image.
func Open(ctx context.Context, remote Remote, local *store.Records, tok string, opts ...Option) (*Session, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ctx = logger.ContextWithToken(ctx, tok)

	if err := remote.Authenticate(ctx); err != nil {
		return nil, err
	}
	shard, err := remote.GetShard(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := local.GetLabels(ctx, tok)
	switch {
	case err == nil:
	case lherrors.IsNotFound(err):
		rec = &store.LabelRecord{Token: tok, Log: labels.New()}
	default:
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		token:  tok,
		remote: remote,
		local:  local,
		now:    o.now,
		ctx:    sctx,
		cancel: cancel,
		shard:  shard,
		rec:    rec,
		opts:   o,
		cache:  preload.New(remote, o.capacity, o.metrics),
	}
	s.cursor = min(rec.Submitted+rec.Log.Len(), len(shard))

	logger.InfoCtx(ctx, "Session opened",
		logger.KeyTotal, len(shard), "cursor", s.cursor, "pending", rec.Log.Len())

	s.mu.Lock()
	s.prefetchLocked(s.cursor)
	s.mu.Unlock()
	return s, nil
}

// Token returns the worker token.
func (s *Session) Token() string {
	return s.token
}

// Shard returns a copy of the shard file list.
func (s *Session) Shard() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shard...)
}

// Cursor returns the index of the next image to label.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Done reports whether every image has been labeled.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor >= len(s.shard)
}

// Pending returns a copy of the labels not yet submitted.
func (s *Session) Pending() *labels.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Log.Clone()
}

// Submitted returns how many labels the server has acknowledged.
func (s *Session) Submitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Submitted
}

// Current returns the image under the cursor and starts prefetching the
// ones after it.
func (s *Session) Current(ctx context.Context) (*Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.cursor >= len(s.shard) {
		s.mu.Unlock()
		return nil, ErrCompleted
	}
	idx := s.cursor
	name := s.shard[idx]
	total := len(s.shard)
	cache := s.cache
	s.prefetchLocked(idx + 1)
	s.mu.Unlock()

	data, err := cache.Consume(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Image{Name: name, Index: idx, Total: total, Data: data}, nil
}

// prefetchLocked queues shard[from:from+K] in the cache.
func (s *Session) prefetchLocked(from int) {
	if s.opts.noPrefetch {
		return
	}
	end := min(from+s.cache.Capacity(), len(s.shard))
	for i := from; i < end; i++ {
		s.cache.Prefetch(s.ctx, s.shard[i])
	}
}

// Classify labels the image under the cursor with category and advances.
//
// The label is persisted locally before progress is reported. A failed
// report is returned as a NetworkError but the label is kept; the next
// successful report carries the absolute count anyway.
func (s *Session) Classify(ctx context.Context, category string) (labels.Event, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return labels.Event{}, lherrors.NewConfigError("category is empty")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return labels.Event{}, ErrClosed
	}
	if s.cursor >= len(s.shard) {
		n := len(s.shard)
		s.mu.Unlock()
		return labels.Event{}, lherrors.NewOutOfRangeError(s.token, "all %d images of the shard are labeled", n)
	}

	image := s.shard[s.cursor]
	if err := s.rec.Log.Classify(image, category, s.token, s.now().UTC()); err != nil {
		s.mu.Unlock()
		return labels.Event{}, err
	}
	if err := s.local.PutLabels(ctx, s.rec); err != nil {
		_, _ = s.rec.Log.Undo()
		s.mu.Unlock()
		return labels.Event{}, err
	}
	s.cursor++
	ev, _ := s.rec.Log.Last()
	processed, total := s.cursor, len(s.shard)
	s.mu.Unlock()

	logger.DebugCtx(ctx, "Image classified", logger.KeyImage, image, logger.KeyCategory, category)
	return ev, s.report(ctx, total, processed)
}

// Undo removes the most recent local label and moves the cursor back onto
// its image. Labels already submitted are undone with UndoRemote. A label
// in a batch awaiting acknowledgment may already be applied on the server,
// so it cannot be undone until that batch is submitted.
func (s *Session) Undo(ctx context.Context) (labels.Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return labels.Event{}, ErrClosed
	}
	if s.rec.PendingKey != "" && s.rec.Log.Len() <= s.rec.PendingCount {
		s.mu.Unlock()
		return labels.Event{}, lherrors.NewConflictError(s.token,
			"last label belongs to an unacknowledged submission; submit again first")
	}
	ev, err := s.rec.Log.Undo()
	if err != nil {
		s.mu.Unlock()
		if lherrors.IsNoRecords(err) {
			return labels.Event{}, lherrors.NewNoRecordsError(s.token, "no local classification to undo")
		}
		return labels.Event{}, err
	}
	if err := s.local.PutLabels(ctx, s.rec); err != nil {
		_ = s.rec.Log.Classify(ev.Image, ev.Category, ev.Worker, ev.At)
		s.mu.Unlock()
		return labels.Event{}, err
	}
	if s.cursor > 0 {
		s.cursor--
	}
	processed, total := s.cursor, len(s.shard)
	s.mu.Unlock()

	logger.DebugCtx(ctx, "Classification undone", logger.KeyImage, ev.Image, logger.KeyCategory, ev.Category)
	return ev, s.report(ctx, total, processed)
}

// UndoRemote removes the most recent submitted label on the server and
// moves the cursor back onto its image. Local labels must be undone or
// submitted first, since the server only holds labels that precede them.
func (s *Session) UndoRemote(ctx context.Context) (*apiclient.UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if !s.rec.Log.IsEmpty() {
		return nil, lherrors.NewConflictError(s.token,
			"local labels are not submitted; undo or submit them first")
	}

	res, err := s.remote.UndoLast(ctx)
	if err != nil {
		return nil, err
	}

	if s.rec.Submitted > 0 {
		s.rec.Submitted--
	}
	s.cursor = min(s.rec.Submitted, len(s.shard))
	if err := s.local.PutLabels(ctx, s.rec); err != nil {
		return nil, err
	}
	s.prefetchLocked(s.cursor)

	logger.InfoCtx(ctx, "Submitted classification undone",
		logger.KeyImage, res.Undone.Image, logger.KeyCategory, res.Undone.Category, "cursor", s.cursor)
	return res, s.report(ctx, len(s.shard), s.cursor)
}

func (s *Session) report(ctx context.Context, total, processed int) error {
	if _, err := s.remote.ReportProgress(ctx, total, processed, s.now()); err != nil {
		logger.WarnCtx(ctx, "Progress report failed", logger.KeyProcessed, processed, logger.Err(err))
		if lherrors.IsNetwork(err) {
			return err
		}
		return lherrors.NewNetworkError("report progress", err)
	}
	return nil
}

// Submit sends one batch of pending labels to the server.
//
// The first attempt freezes the batch: its size and a fresh idempotency key
// are persisted before anything is sent, and every retry sends exactly that
// prefix under that key, even after more labels were added. Labels added
// after the first attempt form the next batch. On success the batch leaves
// the local log; on failure it stays frozen. Call Submit again while
// Pending is not empty.
func (s *Session) Submit(ctx context.Context) (*apiclient.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.rec.Log.IsEmpty() {
		return nil, lherrors.NewNoRecordsError(s.token, "no classification to submit")
	}

	if s.rec.PendingKey == "" {
		s.rec.PendingKey = uuid.NewString()
		s.rec.PendingCount = s.rec.Log.Len()
		if err := s.local.PutLabels(ctx, s.rec); err != nil {
			s.rec.PendingKey, s.rec.PendingCount = "", 0
			return nil, err
		}
	}

	batch, rest := s.rec.Log.Split(s.rec.PendingCount)
	res, err := s.remote.Submit(ctx, s.rec.PendingKey, batch)
	if err != nil {
		logger.WarnCtx(ctx, "Submission failed, batch kept",
			logger.KeyKey, s.rec.PendingKey, logger.KeyEntries, batch.Len(), logger.Err(err))
		return nil, err
	}

	prev := *s.rec
	s.rec.Submitted += batch.Len()
	s.rec.Log = rest
	s.rec.PendingKey, s.rec.PendingCount = "", 0
	if err := s.local.PutLabels(ctx, s.rec); err != nil {
		// The server has the batch; keeping the key makes a retry a no-op.
		*s.rec = prev
		return nil, err
	}

	logger.InfoCtx(ctx, "Labels submitted",
		logger.KeyEntries, res.Accepted, "duplicate", res.Duplicate, logger.KeyKey, res.Key, "pending", rest.Len())
	return res, nil
}

// Reset cancels every in-flight prefetch and starts over with an empty
// cache, then prefetches from the cursor again.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cache.Close()
	s.cache = preload.New(s.remote, s.opts.capacity, s.opts.metrics)
	s.prefetchLocked(s.cursor)
}

// Close cancels every prefetch and waits for them. Pending labels stay in
// the local store.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cache := s.cache
	s.mu.Unlock()

	s.cancel()
	cache.Close()
	return nil
}
