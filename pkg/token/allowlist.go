package token

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/labelhub/internal/logger"
)

// AllowList is the static set of tokens the server accepts. It is safe for
// concurrent use and can follow its backing file with Watch.
type AllowList struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
	path   string
}

// NewAllowList builds an in-memory list. Every token must pass Validate.
func NewAllowList(tokens []string) (*AllowList, error) {
	a := &AllowList{}
	if err := a.replace(tokens); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadAllowList reads the token file at path.
func LoadAllowList(path string) (*AllowList, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := NewAllowList(f.Tokens)
	if err != nil {
		return nil, err
	}
	a.path = path
	return a, nil
}

func (a *AllowList) replace(tokens []string) error {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if err := Validate(t); err != nil {
			return err
		}
		set[t] = struct{}{}
	}
	a.mu.Lock()
	a.tokens = set
	a.mu.Unlock()
	return nil
}

// Contains reports whether token is allowed.
func (a *AllowList) Contains(token string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.tokens[token]
	return ok
}

// Tokens returns the allowed tokens sorted.
func (a *AllowList) Tokens() []string {
	a.mu.RLock()
	out := make([]string, 0, len(a.tokens))
	for t := range a.tokens {
		out = append(out, t)
	}
	a.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of allowed tokens.
func (a *AllowList) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tokens)
}

// Reload re-reads the backing file. On failure, or when the file holds no
// tokens, the current list is kept.
func (a *AllowList) Reload() error {
	if a.path == "" {
		return fmt.Errorf("allow-list has no backing file")
	}
	f, err := ReadFile(a.path)
	if err != nil {
		return err
	}
	// A truncated file mid-write parses as empty.
	if len(f.Tokens) == 0 {
		return fmt.Errorf("token file %s has no tokens", a.path)
	}
	return a.replace(f.Tokens)
}

// Watch reloads the list whenever its file changes, until ctx is done. The
// parent directory is watched so editors that replace the file by rename
// are still picked up.
func (a *AllowList) Watch(ctx context.Context) error {
	if a.path == "" {
		return fmt.Errorf("allow-list has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(a.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch token file: %w", err)
	}

	target := filepath.Clean(a.path)
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := a.Reload(); err != nil {
					logger.Warn("Token file reload failed, keeping previous allow-list",
						"path", a.path, logger.KeyError, err)
					continue
				}
				logger.Info("Token allow-list reloaded", "path", a.path, "tokens", a.Len())

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Token file watcher error", logger.KeyError, err)
			}
		}
	}()
	return nil
}
