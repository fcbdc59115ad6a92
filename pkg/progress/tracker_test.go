package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

func TestUpsertClamps(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name                 string
		total, processed     int
		wantTotal, wantProcd int
	}{
		{"within range", 10, 4, 10, 4},
		{"processed above total", 10, 12, 10, 10},
		{"negative processed", 10, -1, 10, 0},
		{"negative total", -5, 3, 0, 0},
		{"empty shard", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			rec := tr.Upsert("tok", tt.total, tt.processed, ts)
			assert.Equal(t, tt.wantTotal, rec.Total)
			assert.Equal(t, tt.wantProcd, rec.Processed)
			assert.Equal(t, ts, rec.LastUpdate)
		})
	}
}

func TestUpsertIsFullReplace(t *testing.T) {
	tr := NewTracker()
	tr.Upsert("tok", 10, 7, time.Time{})
	tr.Upsert("tok", 10, 3, time.Time{})

	rec, ok := tr.Get("tok")
	require.True(t, ok)
	assert.Equal(t, 3, rec.Processed)
	assert.False(t, rec.LastUpdate.IsZero(), "zero timestamp is replaced with now")
}

func TestAggregate(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, Summary{}, tr.Aggregate())

	tr.Upsert("a", 4, 2, time.Time{})
	tr.Upsert("b", 3, 3, time.Time{})
	tr.Upsert("c", 3, 0, time.Time{})

	s := tr.Aggregate()
	assert.Equal(t, 5, s.Processed)
	assert.Equal(t, 10, s.Total)
	assert.InDelta(t, 0.5, s.Ratio, 1e-9)
}

func TestAggregateZeroTotal(t *testing.T) {
	tr := NewTracker()
	tr.Upsert("a", 0, 0, time.Time{})
	assert.Equal(t, 0.0, tr.Aggregate().Ratio)
}

func TestDecrement(t *testing.T) {
	tr := NewTracker()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	tr.Upsert("tok", 5, 1, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))

	rec, err := tr.Decrement("tok")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Processed)
	assert.Equal(t, fixed, rec.LastUpdate)

	rec, err = tr.Decrement("tok")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Processed, "never below zero")

	_, err = tr.Decrement("missing")
	assert.True(t, lherrors.IsNotFound(err))
}

func TestSnapshotSorted(t *testing.T) {
	tr := NewTracker()
	for _, tok := range []string{"c", "a", "b"} {
		tr.Upsert(tok, 1, 0, time.Time{})
	}

	var tokens []string
	for _, rec := range tr.Snapshot() {
		tokens = append(tokens, rec.Token)
	}
	assert.Equal(t, []string{"a", "b", "c"}, tokens)
}

func TestLoadReplacesAndClamps(t *testing.T) {
	tr := NewTracker()
	tr.Upsert("old", 1, 1, time.Time{})

	tr.Load([]Record{{Token: "x", Total: 3, Processed: 9}})

	assert.Equal(t, 1, tr.Len())
	rec, ok := tr.Get("x")
	require.True(t, ok)
	assert.Equal(t, 3, rec.Processed)
	_, ok = tr.Get("old")
	assert.False(t, ok)
}

func TestConcurrentUpserts(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Upsert("tok", 100, i, time.Time{})
			_ = tr.Aggregate()
		}(i)
	}
	wg.Wait()

	rec, ok := tr.Get("tok")
	require.True(t, ok)
	assert.Equal(t, 100, rec.Total)
}

func TestRecordRatio(t *testing.T) {
	assert.Equal(t, 0.0, Record{}.Ratio())
	assert.InDelta(t, 0.25, Record{Total: 4, Processed: 1}.Ratio(), 1e-9)
}
