package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/labelhub/pkg/apiclient"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/store/badger"
	"github.com/marmos91/labelhub/pkg/store/memory"
)

const testToken = "001_001_abc"

// fakeRemote is an in-process stand-in for the API.
type fakeRemote struct {
	mu        sync.Mutex
	shard     []string
	authErr   error
	reportErr error
	submitErr error
	// lostAck applies a submission, then fails as if the reply was lost.
	lostAck   bool
	fetches   map[string]int
	reports   []int
	keys      []string
	received  []*labels.Log
	applied   map[string]bool
	server    *labels.Log
}

func newFakeRemote(n int) *fakeRemote {
	r := &fakeRemote{fetches: map[string]int{}, applied: map[string]bool{}, server: labels.New()}
	for i := 1; i <= n; i++ {
		r.shard = append(r.shard, fmt.Sprintf("img_%03d.png", i))
	}
	return r
}

func (r *fakeRemote) Authenticate(context.Context) error { return r.authErr }

func (r *fakeRemote) GetShard(context.Context) ([]string, error) {
	return append([]string(nil), r.shard...), nil
}

func (r *fakeRemote) FetchImage(_ context.Context, name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[name]++
	return []byte("bytes of " + name), nil
}

func (r *fakeRemote) ReportProgress(_ context.Context, total, processed int, ts time.Time) (*progress.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reportErr != nil {
		return nil, r.reportErr
	}
	r.reports = append(r.reports, processed)
	return &progress.Record{Token: testToken, Total: total, Processed: processed, LastUpdate: ts}, nil
}

func (r *fakeRemote) Submit(_ context.Context, key string, log *labels.Log) (*apiclient.SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	if r.submitErr != nil {
		return nil, r.submitErr
	}
	if r.applied[key] {
		return &apiclient.SubmitResult{Token: testToken, Key: key, Duplicate: true}, nil
	}
	r.applied[key] = true
	r.received = append(r.received, log.Clone())
	r.server.Append(log)
	if r.lostAck {
		return nil, lherrors.NewNetworkError("POST /api/v1/classifications", errors.New("connection reset"))
	}
	return &apiclient.SubmitResult{Token: testToken, Key: key, Accepted: log.Len(), Total: r.server.Len()}, nil
}

func (r *fakeRemote) UndoLast(context.Context) (*apiclient.UndoResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, err := r.server.Undo()
	if err != nil {
		return nil, lherrors.NewNoRecordsError(testToken, "no classification to undo")
	}
	return &apiclient.UndoResult{Token: testToken, Undone: ev, Remaining: r.server.Len()}, nil
}

func (r *fakeRemote) serverEntries() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for img, entries := range r.server.Records() {
		out[img] = len(entries)
	}
	return out
}

func (r *fakeRemote) lastReport() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return -1
	}
	return r.reports[len(r.reports)-1]
}

func openSession(t *testing.T, r *fakeRemote, local *store.Records) *Session {
	t.Helper()
	s, err := Open(t.Context(), r, local, testToken)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	t.Run("AuthFailure", func(t *testing.T) {
		r := newFakeRemote(3)
		r.authErr = lherrors.NewAuthError(testToken)
		_, err := Open(t.Context(), r, store.NewRecords(memory.New()), testToken)
		assert.True(t, lherrors.IsAuth(err))
	})

	t.Run("WithoutPrefetch", func(t *testing.T) {
		r := newFakeRemote(3)
		s, err := Open(t.Context(), r, store.NewRecords(memory.New()), testToken, WithoutPrefetch())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		img, err := s.Current(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "img_001.png", img.Name)

		r.mu.Lock()
		defer r.mu.Unlock()
		assert.Equal(t, map[string]int{"img_001.png": 1}, r.fetches)
	})

	t.Run("FreshStart", func(t *testing.T) {
		s := openSession(t, newFakeRemote(3), store.NewRecords(memory.New()))
		assert.Equal(t, 0, s.Cursor())
		assert.False(t, s.Done())
		assert.Len(t, s.Shard(), 3)
	})

	t.Run("CorruptLocalRecord", func(t *testing.T) {
		kv := memory.New()
		require.NoError(t, kv.Put(t.Context(), store.KindLabels, testToken, []byte("{oops")))
		_, err := Open(t.Context(), newFakeRemote(3), store.NewRecords(kv), testToken)
		assert.True(t, lherrors.IsDataFormat(err))
	})
}

func TestCurrentWalksShard(t *testing.T) {
	r := newFakeRemote(3)
	s := openSession(t, r, store.NewRecords(memory.New()))
	ctx := t.Context()

	for i, name := range r.shard {
		img, err := s.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, name, img.Name)
		assert.Equal(t, i, img.Index)
		assert.Equal(t, 3, img.Total)
		assert.Equal(t, "bytes of "+name, string(img.Data))

		_, err = s.Classify(ctx, "cat")
		require.NoError(t, err)
	}

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, ErrCompleted)
	assert.True(t, s.Done())
}

func TestCurrentPrefetchesAhead(t *testing.T) {
	r := newFakeRemote(5)
	s, err := Open(t.Context(), r, store.NewRecords(memory.New()), testToken, WithCacheCapacity(2))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	s.cache.Wait()

	_, err = s.Current(t.Context())
	require.NoError(t, err)
	s.cache.Wait()

	assert.True(t, s.cache.Contains(r.shard[1]))
	assert.True(t, s.cache.Contains(r.shard[2]))
	assert.LessOrEqual(t, s.cache.Len(), 2)
}

func TestClassify(t *testing.T) {
	t.Run("AdvancesAndReports", func(t *testing.T) {
		r := newFakeRemote(2)
		s := openSession(t, r, store.NewRecords(memory.New()))

		ev, err := s.Classify(t.Context(), " dog ")
		require.NoError(t, err)
		assert.Equal(t, r.shard[0], ev.Image)
		assert.Equal(t, "dog", ev.Category)
		assert.Equal(t, testToken, ev.Worker)
		assert.Equal(t, 1, s.Cursor())
		assert.Equal(t, 1, r.lastReport())
	})

	t.Run("EmptyCategory", func(t *testing.T) {
		s := openSession(t, newFakeRemote(2), store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "  ")
		assert.True(t, lherrors.IsConfig(err))
		assert.Equal(t, 0, s.Cursor())
	})

	t.Run("PastEndIsOutOfRange", func(t *testing.T) {
		s := openSession(t, newFakeRemote(1), store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "cat")
		require.NoError(t, err)

		_, err = s.Classify(t.Context(), "cat")
		assert.True(t, lherrors.IsOutOfRange(err))
		assert.Equal(t, 1, s.Pending().Len())
	})

	t.Run("ReportFailureKeepsLabel", func(t *testing.T) {
		r := newFakeRemote(2)
		r.reportErr = errors.New("connection refused")
		s := openSession(t, r, store.NewRecords(memory.New()))

		_, err := s.Classify(t.Context(), "cat")
		assert.True(t, lherrors.IsNetwork(err))
		assert.Equal(t, 1, s.Cursor())
		assert.Equal(t, 1, s.Pending().Len())
	})
}

func TestUndo(t *testing.T) {
	r := newFakeRemote(3)
	s := openSession(t, r, store.NewRecords(memory.New()))
	ctx := t.Context()

	_, err := s.Undo(ctx)
	assert.True(t, lherrors.IsNoRecords(err))

	_, err = s.Classify(ctx, "cat")
	require.NoError(t, err)
	_, err = s.Classify(ctx, "dog")
	require.NoError(t, err)

	ev, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.shard[1], ev.Image)
	assert.Equal(t, "dog", ev.Category)
	assert.Equal(t, 1, s.Cursor())
	assert.Equal(t, 1, r.lastReport())

	img, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.shard[1], img.Name)

	pending := s.Pending()
	assert.Equal(t, 1, pending.Len())
	assert.Equal(t, []labels.Entry{{Category: "cat", Worker: testToken}}, pending.Entries(r.shard[0]))
}

func TestSubmit(t *testing.T) {
	t.Run("NothingToSubmit", func(t *testing.T) {
		s := openSession(t, newFakeRemote(2), store.NewRecords(memory.New()))
		_, err := s.Submit(t.Context())
		assert.True(t, lherrors.IsNoRecords(err))
	})

	t.Run("ClearsLogOnSuccess", func(t *testing.T) {
		r := newFakeRemote(3)
		s := openSession(t, r, store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "cat")
		require.NoError(t, err)

		res, err := s.Submit(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Accepted)
		assert.True(t, s.Pending().IsEmpty())
		assert.Equal(t, 1, s.Cursor())
		require.Len(t, r.received, 1)
		assert.Equal(t, 1, r.received[0].Len())

		// Nothing local is left to undo once submitted.
		_, err = s.Undo(t.Context())
		assert.True(t, lherrors.IsNoRecords(err))
	})

	t.Run("RetryReusesKey", func(t *testing.T) {
		r := newFakeRemote(3)
		local := store.NewRecords(memory.New())
		s := openSession(t, r, local)
		_, err := s.Classify(t.Context(), "cat")
		require.NoError(t, err)

		r.submitErr = lherrors.NewNetworkError("POST /api/v1/classifications", errors.New("timeout"))
		_, err = s.Submit(t.Context())
		require.True(t, lherrors.IsNetwork(err))
		assert.Equal(t, 1, s.Pending().Len())

		rec, err := local.GetLabels(t.Context(), testToken)
		require.NoError(t, err)
		require.NotEmpty(t, rec.PendingKey)

		r.submitErr = nil
		_, err = s.Submit(t.Context())
		require.NoError(t, err)
		require.Len(t, r.keys, 2)
		assert.Equal(t, r.keys[0], r.keys[1])
	})

	t.Run("LaterLabelsFormNextBatch", func(t *testing.T) {
		r := newFakeRemote(3)
		s := openSession(t, r, store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "cat")
		require.NoError(t, err)

		r.submitErr = errors.New("boom")
		_, err = s.Submit(t.Context())
		require.Error(t, err)

		_, err = s.Classify(t.Context(), "dog")
		require.NoError(t, err)

		r.submitErr = nil
		res, err := s.Submit(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Accepted)
		assert.Equal(t, 1, s.Pending().Len())
		assert.Equal(t, 1, s.Submitted())

		res, err = s.Submit(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Accepted)
		assert.True(t, s.Pending().IsEmpty())
		assert.Equal(t, 2, s.Submitted())

		require.Len(t, r.keys, 3)
		assert.Equal(t, r.keys[0], r.keys[1])
		assert.NotEqual(t, r.keys[1], r.keys[2])
	})

	t.Run("LostAckIsNotAppliedTwice", func(t *testing.T) {
		r := newFakeRemote(3)
		s := openSession(t, r, store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "A")
		require.NoError(t, err)

		r.lostAck = true
		_, err = s.Submit(t.Context())
		require.True(t, lherrors.IsNetwork(err))
		r.lostAck = false

		_, err = s.Classify(t.Context(), "B")
		require.NoError(t, err)

		res, err := s.Submit(t.Context())
		require.NoError(t, err)
		assert.True(t, res.Duplicate)

		_, err = s.Submit(t.Context())
		require.NoError(t, err)

		assert.Equal(t, map[string]int{"img_001.png": 1, "img_002.png": 1}, r.serverEntries())
		assert.True(t, s.Pending().IsEmpty())
		assert.Equal(t, 2, s.Submitted())
	})

	t.Run("FrozenBatchBlocksLocalUndo", func(t *testing.T) {
		r := newFakeRemote(3)
		s := openSession(t, r, store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "A")
		require.NoError(t, err)

		r.submitErr = errors.New("boom")
		_, err = s.Submit(t.Context())
		require.Error(t, err)

		_, err = s.Classify(t.Context(), "B")
		require.NoError(t, err)

		// The label made after the attempt is still local.
		ev, err := s.Undo(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "B", ev.Category)

		_, err = s.Undo(t.Context())
		assert.True(t, lherrors.IsConflict(err))
		assert.Equal(t, 1, s.Pending().Len())
		assert.Equal(t, 1, s.Cursor())
	})
}

func TestUndoRemote(t *testing.T) {
	t.Run("ReopenResumesOnUndoneImage", func(t *testing.T) {
		r := newFakeRemote(4)
		local := store.NewRecords(memory.New())
		s, err := Open(t.Context(), r, local, testToken)
		require.NoError(t, err)

		for _, c := range []string{"cat", "dog"} {
			_, err = s.Classify(t.Context(), c)
			require.NoError(t, err)
		}
		_, err = s.Submit(t.Context())
		require.NoError(t, err)

		res, err := s.UndoRemote(t.Context())
		require.NoError(t, err)
		assert.Equal(t, r.shard[1], res.Undone.Image)
		assert.Equal(t, 1, res.Remaining)
		assert.Equal(t, 1, s.Cursor())
		assert.Equal(t, 1, s.Submitted())
		assert.Equal(t, 1, r.lastReport())
		require.NoError(t, s.Close())

		s = openSession(t, r, local)
		assert.Equal(t, 1, s.Cursor())
		img, err := s.Current(t.Context())
		require.NoError(t, err)
		assert.Equal(t, r.shard[1], img.Name)

		_, err = s.Classify(t.Context(), "bird")
		require.NoError(t, err)
		assert.Equal(t, 2, r.lastReport())
	})

	t.Run("LocalLabelsFirst", func(t *testing.T) {
		r := newFakeRemote(3)
		s := openSession(t, r, store.NewRecords(memory.New()))
		_, err := s.Classify(t.Context(), "cat")
		require.NoError(t, err)
		_, err = s.Submit(t.Context())
		require.NoError(t, err)
		_, err = s.Classify(t.Context(), "dog")
		require.NoError(t, err)

		_, err = s.UndoRemote(t.Context())
		assert.True(t, lherrors.IsConflict(err))
		assert.Equal(t, 1, r.server.Len())
		assert.Equal(t, 2, s.Cursor())
	})

	t.Run("NothingOnServer", func(t *testing.T) {
		s := openSession(t, newFakeRemote(3), store.NewRecords(memory.New()))
		_, err := s.UndoRemote(t.Context())
		assert.True(t, lherrors.IsNoRecords(err))
		assert.Equal(t, 0, s.Cursor())
	})
}

func TestResumeFromLocalStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local")
	r := newFakeRemote(4)

	kv, err := badger.New(badger.Config{Path: path})
	require.NoError(t, err)
	s, err := Open(t.Context(), r, store.NewRecords(kv), testToken)
	require.NoError(t, err)

	for _, c := range []string{"cat", "dog"} {
		_, err = s.Classify(t.Context(), c)
		require.NoError(t, err)
	}
	_, err = s.Submit(t.Context())
	require.NoError(t, err)
	_, err = s.Classify(t.Context(), "cat")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, kv.Close())

	kv, err = badger.New(badger.Config{Path: path})
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	s, err = Open(t.Context(), r, store.NewRecords(kv), testToken)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, 3, s.Cursor())
	assert.Equal(t, 1, s.Pending().Len())
	img, err := s.Current(t.Context())
	require.NoError(t, err)
	assert.Equal(t, r.shard[3], img.Name)
}

func TestResumeClampsToShard(t *testing.T) {
	local := store.NewRecords(memory.New())
	log := labels.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Classify(fmt.Sprintf("img_%03d.png", i+1), "cat", testToken, time.Now()))
	}
	require.NoError(t, local.PutLabels(t.Context(), &store.LabelRecord{Token: testToken, Log: log}))

	s := openSession(t, newFakeRemote(3), local)
	assert.Equal(t, 3, s.Cursor())
	assert.True(t, s.Done())
}

func TestResetAndClose(t *testing.T) {
	r := newFakeRemote(4)
	s, err := Open(t.Context(), r, store.NewRecords(memory.New()), testToken)
	require.NoError(t, err)

	s.Reset()
	img, err := s.Current(t.Context())
	require.NoError(t, err)
	assert.Equal(t, r.shard[0], img.Name)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Current(t.Context())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Classify(t.Context(), "cat")
	assert.ErrorIs(t, err, ErrClosed)
}
