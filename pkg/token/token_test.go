package token

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		token string
		ok    bool
	}{
		{"001_002_abc", true},
		{"Worker_7", true},
		{"", false},
		{"../etc", false},
		{"a/b", false},
		{"a\\b", false},
		{"has space", false},
		{"dot.dot", false},
		{"émoji", false},
		{string(make([]byte, MaxLength+1)), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.token), func(t *testing.T) {
			err := Validate(tt.token)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, lherrors.IsConfig(err))
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Run("FormatAndOrder", func(t *testing.T) {
		tokens, err := NewAllocator().Generate(2, 3)
		require.NoError(t, err)
		require.Len(t, tokens, 6)

		format := regexp.MustCompile(`^\d{3}_\d{3}_[a-z]{3}$`)
		for _, tok := range tokens {
			assert.Regexp(t, format, tok)
			assert.NoError(t, Validate(tok))
		}
		assert.Equal(t, "001_001_", tokens[0][:8])
		assert.Equal(t, "001_003_", tokens[2][:8])
		assert.Equal(t, "002_001_", tokens[3][:8])
	})

	t.Run("RejectsInvalidCounts", func(t *testing.T) {
		for _, c := range [][2]int{{0, 1}, {1, 0}, {-1, 3}, {1000, 1}} {
			_, err := NewAllocator().Generate(c[0], c[1])
			assert.True(t, lherrors.IsConfig(err), "groups=%d members=%d", c[0], c[1])
		}
	})

	t.Run("RetriesOnCollision", func(t *testing.T) {
		draws := []string{"aaa", "aaa", "bbb"}
		a := NewAllocator()
		a.suffix = func() (string, error) {
			s := draws[0]
			draws = draws[1:]
			return s, nil
		}
		a.Reserve("001_001_aaa")

		tokens, err := a.Generate(1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"001_001_bbb"}, tokens)
	})

	t.Run("GivesUpWhenSuffixSpaceExhausted", func(t *testing.T) {
		a := NewAllocator()
		a.suffix = func() (string, error) { return "zzz", nil }
		a.Reserve("001_001_zzz")

		_, err := a.Generate(1, 1)
		assert.True(t, lherrors.IsConfig(err))
	})
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	tokens := []string{"001_001_abc", "001_002_def", "002_001_ghi", "002_002_jkl"}

	require.NoError(t, WriteFile(path, 2, 2, tokens))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "group_num: 2,member_num: 2\n")

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Groups)
	assert.Equal(t, 2, f.Members)
	assert.Equal(t, tokens, f.Tokens)
}

func TestParse(t *testing.T) {
	t.Run("HeaderOptional", func(t *testing.T) {
		f, err := Parse([]byte("\n001_001_abc\n\n001_002_abd\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"001_001_abc", "001_002_abd"}, f.Tokens)
	})

	t.Run("RejectsInvalidToken", func(t *testing.T) {
		_, err := Parse([]byte("group_num: 1,member_num: 1\n../../etc\n"))
		assert.ErrorContains(t, err, "line 2")
	})

	t.Run("RejectsDuplicates", func(t *testing.T) {
		_, err := Parse([]byte("001_001_abc\n001_001_abc\n"))
		assert.ErrorContains(t, err, "duplicate")
	})
}

func TestAllowList(t *testing.T) {
	t.Run("Contains", func(t *testing.T) {
		a, err := NewAllowList([]string{"b_1", "a_1"})
		require.NoError(t, err)
		assert.True(t, a.Contains("a_1"))
		assert.False(t, a.Contains("c_1"))
		assert.Equal(t, []string{"a_1", "b_1"}, a.Tokens())
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		_, err := NewAllowList([]string{"ok", "not/ok"})
		assert.Error(t, err)
	})

	t.Run("ReloadKeepsPreviousOnError", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.txt")
		require.NoError(t, WriteFile(path, 1, 1, []string{"001_001_aaa"}))

		a, err := LoadAllowList(path)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("bad token\n"), 0600))
		assert.Error(t, a.Reload())
		assert.True(t, a.Contains("001_001_aaa"))
	})

	t.Run("WatchPicksUpChanges", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.txt")
		require.NoError(t, WriteFile(path, 1, 1, []string{"001_001_aaa"}))

		a, err := LoadAllowList(path)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, a.Watch(ctx))

		require.NoError(t, WriteFile(path, 1, 2, []string{"001_001_aaa", "001_002_bbb"}))

		assert.Eventually(t, func() bool { return a.Contains("001_002_bbb") },
			5*time.Second, 20*time.Millisecond)
	})
}
