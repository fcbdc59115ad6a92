package partition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("img_%03d.png", i+1)
	}
	return out
}

func tokens(m int) []string {
	out := make([]string, m)
	for i := range out {
		out[i] = fmt.Sprintf("001_%03d_abc", i+1)
	}
	return out
}

func TestPlanTenFilesThreeTokens(t *testing.T) {
	files := names(10)
	plan, err := Plan(files, tokens(3))
	require.NoError(t, err)

	assert.Equal(t, []int{4, 3, 3}, Sizes(plan))
	assert.Equal(t, files[0:4], plan[0].Files)
	assert.Equal(t, files[4:7], plan[1].Files)
	assert.Equal(t, files[7:10], plan[2].Files)
}

func TestPartitionLaw(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for m := 1; m <= 7; m++ {
			t.Run(fmt.Sprintf("N%d_M%d", n, m), func(t *testing.T) {
				files := names(n)
				plan, err := Plan(files, tokens(m))
				require.NoError(t, err)
				require.Len(t, plan, m)

				var concat []string
				seen := make(map[string]bool)
				minSize, maxSize := n+1, -1
				for _, a := range plan {
					for _, f := range a.Files {
						assert.False(t, seen[f], "file %s assigned twice", f)
						seen[f] = true
					}
					concat = append(concat, a.Files...)
					minSize = min(minSize, len(a.Files))
					maxSize = max(maxSize, len(a.Files))
				}

				if n == 0 {
					assert.Empty(t, concat)
				} else {
					assert.Equal(t, files, concat)
				}
				assert.LessOrEqual(t, maxSize-minSize, 1)
			})
		}
	}
}

func TestPlanErrors(t *testing.T) {
	t.Run("ZeroTokens", func(t *testing.T) {
		_, err := Plan(names(3), nil)
		assert.True(t, lherrors.IsConfig(err))
	})

	t.Run("InvalidToken", func(t *testing.T) {
		_, err := Plan(names(3), []string{"ok_1", "../bad"})
		assert.True(t, lherrors.IsConfig(err))
	})

	t.Run("DuplicateToken", func(t *testing.T) {
		_, err := Plan(names(3), []string{"ok_1", "ok_1"})
		assert.True(t, lherrors.IsConfig(err))
	})
}

func TestPartitionEmptyCorpus(t *testing.T) {
	shards, err := Partition(nil, tokens(2))
	require.NoError(t, err)
	require.Len(t, shards, 2)
	for _, s := range shards {
		assert.Empty(t, s)
	}
}

func TestPlanDoesNotAliasInput(t *testing.T) {
	files := names(4)
	plan, err := Plan(files, tokens(2))
	require.NoError(t, err)

	plan[0].Files[0] = "changed.png"
	assert.Equal(t, "img_001.png", files[0])
}
