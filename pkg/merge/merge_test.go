package merge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/store/memory"
)

var at = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, logs map[string][][2]string) *store.Records {
	t.Helper()
	recs := store.NewRecords(memory.New())
	for tok, pairs := range logs {
		l := labels.New()
		for _, p := range pairs {
			require.NoError(t, l.Classify(p[0], p[1], tok, at))
		}
		require.NoError(t, recs.PutLabels(t.Context(), &store.LabelRecord{Token: tok, Log: l}))
	}
	return recs
}

func TestConflictScenario(t *testing.T) {
	recs := seed(t, map[string][][2]string{
		"w1": {{"img_001.png", "清洗"}, {"img_002.png", "保留"}},
		"w2": {{"img_001.png", "保留"}, {"img_002.png", "保留"}},
	})

	res, err := Merge(t.Context(), recs)
	require.NoError(t, err)

	assert.Equal(t, []string{"w1", "w2"}, res.Tokens)
	assert.Equal(t, []labels.Entry{
		{Category: "清洗", Worker: "w1"},
		{Category: "保留", Worker: "w2"},
	}, res.Conflict["img_001.png"])
	assert.NotContains(t, res.Consistent, "img_001.png")

	assert.Len(t, res.Consistent["img_002.png"], 2, "multiplicity is preserved")
	cat, ok := res.Category("img_002.png")
	assert.True(t, ok)
	assert.Equal(t, "保留", cat)
}

func TestMergeOrderIsTokenThenLog(t *testing.T) {
	recs := seed(t, map[string][][2]string{
		"b": {{"x.png", "one"}},
		"a": {{"x.png", "two"}, {"x.png", "three"}},
	})

	res, err := Merge(t.Context(), recs)
	require.NoError(t, err)
	assert.Equal(t, []labels.Entry{
		{Category: "two", Worker: "a"},
		{Category: "three", Worker: "a"},
		{Category: "one", Worker: "b"},
	}, res.Merged["x.png"])
}

func TestMergeSetsPartitionMerged(t *testing.T) {
	recs := seed(t, map[string][][2]string{
		"a": {{"1.png", "x"}, {"2.png", "x"}, {"3.png", "y"}},
		"b": {{"1.png", "x"}, {"2.png", "z"}},
	})

	res, err := Merge(t.Context(), recs)
	require.NoError(t, err)

	for img := range res.Merged {
		_, inConflict := res.Conflict[img]
		_, inConsistent := res.Consistent[img]
		assert.True(t, inConflict != inConsistent, "%s must be in exactly one set", img)
	}
	assert.Equal(t, len(res.Merged), len(res.Conflict)+len(res.Consistent))
}

func TestClassifyExcludesEmptyImages(t *testing.T) {
	res := Classify(map[string][]labels.Entry{"empty.png": {}})
	assert.Empty(t, res.Merged)
	assert.Empty(t, res.Conflict)
	assert.Empty(t, res.Consistent)
}

func TestMergeIsIdempotent(t *testing.T) {
	recs := seed(t, map[string][][2]string{
		"a": {{"1.png", "x"}, {"2.png", "y"}},
		"b": {{"1.png", "z"}},
		"c": {{"3.png", "q"}},
	})

	dir1, dir2 := t.TempDir(), t.TempDir()
	for _, dir := range []string{dir1, dir2} {
		res, err := Merge(t.Context(), recs)
		require.NoError(t, err)
		require.NoError(t, res.WriteFiles(dir))
	}

	for _, name := range []string{MergedFile, ConflictFile, ConsistentFile} {
		a, err := os.ReadFile(filepath.Join(dir1, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dir2, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}

	set, err := ReadSet(filepath.Join(dir1, ConflictFile))
	require.NoError(t, err)
	assert.Contains(t, set, "1.png")
}

func TestMergeEmpty(t *testing.T) {
	res, err := Merge(t.Context(), store.NewRecords(memory.New()))
	require.NoError(t, err)
	assert.Empty(t, res.Merged)

	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

type failingSource struct {
	*store.Records
	failOn string
}

func (f failingSource) GetLabels(ctx context.Context, tok string) (*store.LabelRecord, error) {
	if tok == f.failOn {
		return nil, errors.New("disk on fire")
	}
	return f.Records.GetLabels(ctx, tok)
}

func TestMergeAbortsOnReadFailure(t *testing.T) {
	recs := seed(t, map[string][][2]string{
		"a": {{"1.png", "x"}},
		"b": {{"2.png", "y"}},
	})

	res, err := Merge(t.Context(), failingSource{Records: recs, failOn: "b"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "disk on fire")
}
