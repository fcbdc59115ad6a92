package cmdutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/labelhub/internal/cli/credentials"
)

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{" https://labels.example.com ", "https://labels.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeServerURL(tt.in))
		})
	}
}

func newCredentials(t *testing.T) *credentials.Store {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	s, err := credentials.OpenStore(filepath.Join(t.TempDir(), "lhubctl.json"))
	require.NoError(t, err)
	return s
}

func TestResolveFrom(t *testing.T) {
	t.Run("NotLoggedIn", func(t *testing.T) {
		_, err := ResolveFrom(newCredentials(t), &GlobalFlags{})
		assert.ErrorIs(t, err, credentials.ErrNotLoggedIn)
	})

	t.Run("FlagsOnly", func(t *testing.T) {
		target, err := ResolveFrom(newCredentials(t), &GlobalFlags{ServerURL: "localhost:8080", Token: "001_001_abc"})
		require.NoError(t, err)
		assert.Equal(t, "localhost-8080_001_001_abc", target.Name)
		assert.Equal(t, "http://localhost:8080", target.Context.ServerURL)
		assert.True(t, strings.HasSuffix(target.Context.LocalStore, filepath.Join("worker", target.Name)))
	})

	t.Run("SavedContext", func(t *testing.T) {
		s := newCredentials(t)
		require.NoError(t, s.Login("mine", &credentials.Context{
			ServerURL:  "http://localhost:8080",
			Token:      "001_001_abc",
			LocalStore: "/data/mine",
		}))

		target, err := ResolveFrom(s, &GlobalFlags{})
		require.NoError(t, err)
		assert.Equal(t, "mine", target.Name)
		assert.Equal(t, "/data/mine", target.Context.LocalStore)
	})

	t.Run("TokenOverrideGetsOwnStore", func(t *testing.T) {
		s := newCredentials(t)
		require.NoError(t, s.Login("mine", &credentials.Context{
			ServerURL:  "http://localhost:8080",
			Token:      "001_001_abc",
			LocalStore: "/data/mine",
		}))

		target, err := ResolveFrom(s, &GlobalFlags{Token: "001_002_def"})
		require.NoError(t, err)
		assert.Equal(t, "001_002_def", target.Context.Token)
		assert.Equal(t, "http://localhost:8080", target.Context.ServerURL)
		assert.NotEqual(t, "/data/mine", target.Context.LocalStore)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := ResolveFrom(newCredentials(t), &GlobalFlags{ServerURL: "localhost", Token: "../etc"})
		assert.Error(t, err)
	})
}

func TestOpenLocal(t *testing.T) {
	target := &Target{Context: credentials.Context{LocalStore: filepath.Join(t.TempDir(), "worker")}}

	records, closeFn, err := target.OpenLocal()
	require.NoError(t, err)
	defer closeFn()
	require.NoError(t, records.KV().Healthcheck(t.Context()))
}
