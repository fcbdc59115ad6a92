// Package storetest is the conformance suite every store.Store backend must
// pass.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/store"
)

// StoreFactory returns a fresh, empty store. Use t.TempDir for on-disk
// backends and t.Cleanup for teardown.
type StoreFactory func(t *testing.T) store.Store

// RunConformanceSuite runs every group against factory. Each subtest gets
// its own store.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("KV", func(t *testing.T) { runKVTests(t, factory) })
	t.Run("Keys", func(t *testing.T) { runKeyTests(t, factory) })
	t.Run("Records", func(t *testing.T) { runRecordTests(t, factory) })
	t.Run("Lifecycle", func(t *testing.T) { runLifecycleTests(t, factory) })
}

func runKVTests(t *testing.T, factory StoreFactory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := factory(t)
		_, err := s.Get(t.Context(), store.KindShard, "001_001_abc")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("PutGetOverwrite", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, store.KindShard, "tok_1", []byte("v1")))
		got, err := s.Get(ctx, store.KindShard, "tok_1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, s.Put(ctx, store.KindShard, "tok_1", []byte("v2")))
		got, err = s.Get(ctx, store.KindShard, "tok_1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		in := []byte("abc")
		require.NoError(t, s.Put(ctx, store.KindLabels, "tok_1", in))
		in[0] = 'X'

		out, err := s.Get(ctx, store.KindLabels, "tok_1")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), out)
		out[1] = 'Y'

		again, err := s.Get(ctx, store.KindLabels, "tok_1")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, store.KindProgress, "tok_1", []byte("p")))
		require.NoError(t, s.Delete(ctx, store.KindProgress, "tok_1"))
		_, err := s.Get(ctx, store.KindProgress, "tok_1")
		assert.ErrorIs(t, err, store.ErrNotFound)

		assert.NoError(t, s.Delete(ctx, store.KindProgress, "never_written"))
	})

	t.Run("ListIsSortedAndScopedToKind", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		for _, tok := range []string{"c_3", "a_1", "b_2"} {
			require.NoError(t, s.Put(ctx, store.KindShard, tok, []byte(tok)))
		}
		require.NoError(t, s.Put(ctx, store.KindLabels, "z_9", []byte("x")))

		shards, err := s.List(ctx, store.KindShard)
		require.NoError(t, err)
		assert.Equal(t, []string{"a_1", "b_2", "c_3"}, shards)

		progress, err := s.List(ctx, store.KindProgress)
		require.NoError(t, err)
		assert.Empty(t, progress)
	})

	t.Run("ConcurrentWritersOnDistinctTokens", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tok := fmt.Sprintf("w_%02d", i)
				assert.NoError(t, s.Put(ctx, store.KindProgress, tok, []byte(tok)))
			}(i)
		}
		wg.Wait()

		tokens, err := s.List(ctx, store.KindProgress)
		require.NoError(t, err)
		assert.Len(t, tokens, 16)
	})
}

func runKeyTests(t *testing.T, factory StoreFactory) {
	t.Run("RejectsUnsafeTokens", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		for _, bad := range []string{"", "../etc", "a/b", "a:b", "a b", `a\b`} {
			err := s.Put(ctx, store.KindShard, bad, []byte("x"))
			assert.True(t, lherrors.IsConfig(err), "token %q: %v", bad, err)

			_, err = s.Get(ctx, store.KindShard, bad)
			assert.True(t, lherrors.IsConfig(err), "token %q: %v", bad, err)
		}
	})

	t.Run("RejectsUnknownKind", func(t *testing.T) {
		s := factory(t)
		err := s.Put(t.Context(), store.Kind("secrets"), "tok_1", []byte("x"))
		assert.ErrorIs(t, err, store.ErrUnknownKind)
	})
}

func runRecordTests(t *testing.T, factory StoreFactory) {
	t.Run("ShardRoundTrip", func(t *testing.T) {
		r := store.NewRecords(factory(t))
		ctx := t.Context()

		in := &store.ShardRecord{Token: "001_001_abc", Files: []string{"a.png", "b.png"}, CreatedAt: time.Now().UTC()}
		require.NoError(t, r.PutShard(ctx, in))

		out, err := r.GetShard(ctx, "001_001_abc")
		require.NoError(t, err)
		assert.Equal(t, store.SchemaVersion, out.SchemaVersion)
		assert.Equal(t, in.Files, out.Files)
		assert.True(t, out.Contains("b.png"))
		assert.False(t, out.Contains("c.png"))
	})

	t.Run("MissingRecordIsNotFound", func(t *testing.T) {
		r := store.NewRecords(factory(t))
		_, err := r.GetShard(t.Context(), "001_001_abc")
		assert.True(t, lherrors.IsNotFound(err))
	})

	t.Run("LabelsKeepUndoOrder", func(t *testing.T) {
		r := store.NewRecords(factory(t))
		ctx := t.Context()

		log := labels.New()
		require.NoError(t, log.Classify("a.png", "A", "tok_1", time.Now()))
		require.NoError(t, log.Classify("b.png", "B", "tok_1", time.Now()))
		require.NoError(t, r.PutLabels(ctx, &store.LabelRecord{Token: "tok_1", Log: log, Submissions: []string{"k1"}}))

		out, err := r.GetLabels(ctx, "tok_1")
		require.NoError(t, err)
		assert.True(t, out.HasSubmission("k1"))
		ev, err := out.Log.Undo()
		require.NoError(t, err)
		assert.Equal(t, "b.png", ev.Image)

		tokens, err := r.ListLabelTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"tok_1"}, tokens)
	})

	t.Run("ProgressList", func(t *testing.T) {
		r := store.NewRecords(factory(t))
		ctx := t.Context()

		require.NoError(t, r.PutProgress(ctx, &store.ProgressRecord{Token: "b_1", TotalImages: 3, ProcessedImages: 1}))
		require.NoError(t, r.PutProgress(ctx, &store.ProgressRecord{Token: "a_1", TotalImages: 4, ProcessedImages: 4}))

		all, err := r.ListProgress(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a_1", all[0].Token)
		assert.Equal(t, 4, all[0].ProcessedImages)
	})

	t.Run("CorruptRecordIsDataFormatError", func(t *testing.T) {
		s := factory(t)
		r := store.NewRecords(s)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, store.KindProgress, "tok_1", []byte("{not json")))
		_, err := r.GetProgress(ctx, "tok_1")
		assert.True(t, lherrors.IsDataFormat(err))

		require.NoError(t, s.Put(ctx, store.KindProgress, "tok_2", []byte(`{"schema_version":99}`)))
		_, err = r.GetProgress(ctx, "tok_2")
		assert.True(t, lherrors.IsDataFormat(err))
	})

	t.Run("Corpus", func(t *testing.T) {
		r := store.NewRecords(factory(t))
		ctx := t.Context()

		require.NoError(t, r.PutCorpus(ctx, &store.CorpusRecord{Files: []string{"a.png"}, Tokens: []string{"t_1"}}))
		c, err := r.GetCorpus(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.png"}, c.Files)
	})
}

func runLifecycleTests(t *testing.T, factory StoreFactory) {
	t.Run("Healthcheck", func(t *testing.T) {
		assert.NoError(t, factory(t).Healthcheck(t.Context()))
	})

	t.Run("ClosedStoreRejectsCalls", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Close())

		_, err := s.Get(t.Context(), store.KindShard, "tok_1")
		assert.True(t, errors.Is(err, store.ErrClosed), "got %v", err)
		assert.ErrorIs(t, s.Put(t.Context(), store.KindShard, "tok_1", nil), store.ErrClosed)
		assert.NoError(t, s.Close(), "second Close must be a no-op")
	})
}
