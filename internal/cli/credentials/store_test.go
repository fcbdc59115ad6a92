package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreUsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	s, err := NewStore()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, AppDir, ConfigFileName), s.Path())
	assert.Empty(t, s.Names())
}

func TestStoreLoginAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lhubctl.json")

	s, err := OpenStore(path)
	require.NoError(t, err)

	_, _, err = s.Current()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	ctx := &Context{
		ServerURL:  "http://localhost:8080",
		Token:      "001_001_abc",
		LocalStore: "/tmp/worker",
		LoggedInAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Login("local", ctx))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermissions), info.Mode().Perm())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	name, got, err := reopened.Current()
	require.NoError(t, err)
	assert.Equal(t, "local", name)
	assert.Equal(t, ctx, got)
}

func TestStoreUseAndLogout(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "lhubctl.json"))
	require.NoError(t, err)

	require.NoError(t, s.Login("a", &Context{Token: "001_001_abc"}))
	require.NoError(t, s.Login("b", &Context{Token: "001_002_def"}))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	require.NoError(t, s.Use("a"))
	name, _, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "a", name)

	assert.ErrorIs(t, s.Use("missing"), ErrContextNotFound)

	require.NoError(t, s.Logout("a"))
	_, _, err = s.Current()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = s.Get("b")
	assert.NoError(t, err)
	assert.ErrorIs(t, s.Logout("a"), ErrContextNotFound)
}

func TestStorePreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lhubctl.json")
	s, err := OpenStore(path)
	require.NoError(t, err)

	prefs := Preferences{DefaultOutput: "json", Categories: []string{"清洗", "保留"}, CacheCapacity: 4}
	require.NoError(t, s.SetPreferences(prefs))

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, prefs, reopened.Preferences())
}

func TestOpenStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lhubctl.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenStore(path)
	assert.Error(t, err)
}

func TestDefaultLocalStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	path, err := DefaultLocalStore("local")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, AppDir, "worker", "local"), path)
}

func TestContextName(t *testing.T) {
	tests := []struct {
		server, token, want string
	}{
		{"http://localhost:8080", "001_002_abc", "localhost-8080_001_002_abc"},
		{"https://labels.example.com/", "002_001_xyz", "labels.example.com_002_001_xyz"},
		{"", "001_001_abc", "001_001_abc"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextName(tt.server, tt.token))
		})
	}
}
