package badger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Store {
		s, err := New(Config{Path: filepath.Join(t.TempDir(), "kv")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestInMemory(t *testing.T) {
	s, err := New(Config{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Put(t.Context(), store.KindShard, "tok_1", []byte("x")))
	tokens, err := s.List(t.Context(), store.KindShard)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok_1"}, tokens)
}

func TestReopenKeepsData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")

	s, err := New(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(t.Context(), store.KindLabels, "tok_1", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = New(Config{Path: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(t.Context(), store.KindLabels, "tok_1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestRequiresPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

type sizeMetrics struct {
	caches []string
	sized  bool
}

func (m *sizeMetrics) RecordCacheStats(cacheType string, _, _ uint64, _ float64) {
	m.caches = append(m.caches, cacheType)
}

func (m *sizeMetrics) RecordSize(_, _ int64) { m.sized = true }

func TestReportMetrics(t *testing.T) {
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "kv")})
	require.NoError(t, err)

	m := &sizeMetrics{}
	s.ReportMetrics(m)
	assert.Equal(t, []string{"block", "index"}, m.caches)
	assert.True(t, m.sized)

	require.NoError(t, s.Close())
	m = &sizeMetrics{}
	s.ReportMetrics(m)
	assert.Empty(t, m.caches, "closed store reports nothing")

	assert.NotPanics(t, func() { s.ReportMetrics(nil) })
}
