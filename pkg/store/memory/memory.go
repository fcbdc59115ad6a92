// Package memory is an in-process store.Store. Values are copied on the way
// in and out so callers never share backing arrays with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/labelhub/pkg/store"
)

// Store keeps records in a map guarded by an RWMutex.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, kind store.Kind, token string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	v, ok := s.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, kind store.Kind, token string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.records[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, kind store.Kind, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.records, key)
	return nil
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, kind store.Kind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, store.ErrUnknownKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	tokens := []string{}
	for key := range s.records {
		if k, tok, ok := store.SplitKey(key); ok && k == kind {
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

// Healthcheck implements store.Store.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

var _ store.Store = (*Store)(nil)
