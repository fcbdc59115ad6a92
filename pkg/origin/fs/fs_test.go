package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

func newOrigin(t *testing.T, files map[string]string) *Origin {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	o, err := New(dir)
	require.NoError(t, err)
	return o
}

func TestNew(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, lherrors.IsConfig(err))

	_, err = New("")
	assert.True(t, lherrors.IsConfig(err))
}

func TestList(t *testing.T) {
	o := newOrigin(t, map[string]string{
		"b.png":     "b",
		"a.JPG":     "a",
		"notes.txt": "n",
	})
	require.NoError(t, os.Mkdir(filepath.Join(o.Root(), "sub.png"), 0755))

	names, err := o.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "b.png"}, names)
}

func TestOpen(t *testing.T) {
	o := newOrigin(t, map[string]string{"img_001.png": "pixels"})
	ctx := context.Background()

	data, err := o.Open(ctx, "img_001.png")
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	_, err = o.Open(ctx, "missing.png")
	assert.True(t, lherrors.IsNotFound(err))

	for _, bad := range []string{"../img_001.png", "/etc/passwd", "a/b.png", `a\b.png`} {
		_, err = o.Open(ctx, bad)
		assert.True(t, lherrors.IsConfig(err), bad)
	}
}

func TestOpenCancelled(t *testing.T) {
	o := newOrigin(t, map[string]string{"a.png": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Open(ctx, "a.png")
	assert.ErrorIs(t, err, context.Canceled)
}
