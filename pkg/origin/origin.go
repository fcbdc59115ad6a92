// Package origin abstracts where corpus images come from.
package origin

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// MaxNameLen is the longest accepted image filename in bytes.
const MaxNameLen = 255

// Origin lists and reads corpus images by bare filename.
type Origin interface {
	// List returns the image filenames in the corpus, sorted.
	List(ctx context.Context) ([]string, error)

	// Open returns the raw bytes of the named image. A missing image is a
	// NotFoundError.
	Open(ctx context.Context, name string) ([]byte, error)

	// Healthcheck verifies the origin is reachable.
	Healthcheck(ctx context.Context) error
}

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".gif":  {},
}

// IsImage reports whether name has a supported image extension. The check
// is case-insensitive.
func IsImage(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ValidateFilename accepts only bare file names: no absolute paths, no
// ".." anywhere, no path separators of either kind.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return lherrors.NewConfigError("invalid filename %q", name)
	case len(name) > MaxNameLen:
		return lherrors.NewConfigError("filename exceeds %d bytes", MaxNameLen)
	case filepath.IsAbs(name) || strings.HasPrefix(name, "/"):
		return lherrors.NewConfigError("filename %q must not be absolute", name)
	case strings.Contains(name, ".."):
		return lherrors.NewConfigError("filename %q must not contain '..'", name)
	case strings.ContainsAny(name, `/\`):
		return lherrors.NewConfigError("filename %q must not contain path separators", name)
	case strings.ContainsRune(name, 0):
		return lherrors.NewConfigError("filename contains a NUL byte")
	}
	return nil
}

// FilterImages keeps the names accepted by IsImage and ValidateFilename and
// returns them sorted.
func FilterImages(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if IsImage(n) && ValidateFilename(n) == nil {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
