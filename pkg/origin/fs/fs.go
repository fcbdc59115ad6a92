// Package fs serves corpus images from a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/origin"
)

// Origin reads images from a single flat directory.
type Origin struct {
	root string
}

// New returns an Origin rooted at dir. The directory must exist.
func New(dir string) (*Origin, error) {
	if dir == "" {
		return nil, lherrors.NewConfigError("image directory is not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, lherrors.NewConfigError("invalid image directory %q: %v", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, lherrors.NewConfigError("image directory %q does not exist or is not a directory", dir)
	}
	return &Origin{root: abs}, nil
}

// Root returns the absolute directory served.
func (o *Origin) Root() string {
	return o.root
}

// List implements origin.Origin. Subdirectories are not descended into.
func (o *Origin) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(o.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return origin.FilterImages(names), nil
}

// Open implements origin.Origin.
func (o *Origin) Open(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := origin.ValidateFilename(name); err != nil {
		return nil, err
	}

	path := filepath.Join(o.root, name)
	if !strings.HasPrefix(path, o.root+string(filepath.Separator)) {
		return nil, lherrors.NewConfigError("filename %q escapes the image directory", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, lherrors.NewNotFoundError("", "image "+name)
		}
		return nil, fmt.Errorf("failed to read image %s: %w", name, err)
	}
	return data, nil
}

// Healthcheck implements origin.Origin.
func (o *Origin) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(o.root); err != nil {
		return fmt.Errorf("image directory unavailable: %w", err)
	}
	return nil
}

var _ origin.Origin = (*Origin)(nil)
