// Package badger is a store.Store backed by an embedded BadgerDB.
//
// Keys are the "kind:token" strings built by store.Key, so every kind maps
// to a prefix and List is a prefix scan.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/store"
)

// Config selects the database directory.
type Config struct {
	// Path is the directory holding the database files.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory runs Badger without touching disk. Path is ignored.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// Store implements store.Store on BadgerDB.
type Store struct {
	db     *badgerdb.DB
	mu     sync.RWMutex
	closed bool
}

// New opens (or creates) the database described by cfg.
func New(cfg Config) (*Store, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		if err := os.MkdirAll(cfg.Path, 0700); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(badgerLogger{})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db}, nil
}

func (s *Store) check(ctx context.Context) error {
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

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, kind store.Kind, token string) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, kind store.Kind, token string, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return err
	}

	// Badger may retain the slice until commit.
	v := append([]byte(nil), value...)
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), v)
	})
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, kind store.Kind, token string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	key, err := store.Key(kind, token)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// List implements store.Store. Badger iterates keys in byte order, so the
// result is already sorted.
func (s *Store) List(ctx context.Context, kind store.Kind) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, store.ErrUnknownKind
	}

	prefix := []byte(store.Prefix(kind))
	tokens := []string{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, tok, ok := store.SplitKey(string(it.Item().Key())); ok {
				tokens = append(tokens, tok)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Healthcheck implements store.Store by opening a read transaction.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close implements store.Store. Calling it twice is safe.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Metrics receives periodic BadgerDB statistics. A nil Metrics disables
// collection.
type Metrics interface {
	RecordCacheStats(cacheType string, hits, misses uint64, ratio float64)
	RecordSize(lsm, vlog int64)
}

// ReportMetrics pushes the current cache and size statistics to m.
func (s *Store) ReportMetrics(m Metrics) {
	if m == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	block := s.db.BlockCacheMetrics()
	m.RecordCacheStats("block", block.Hits(), block.Misses(), block.Ratio())
	index := s.db.IndexCacheMetrics()
	m.RecordCacheStats("index", index.Hits(), index.Misses(), index.Ratio())
	m.RecordSize(s.db.Size())
}

// RunMetrics calls ReportMetrics every interval until ctx is done.
func (s *Store) RunMetrics(ctx context.Context, m Metrics, interval time.Duration) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReportMetrics(m)
		}
	}
}

// badgerLogger forwards Badger's internal logging to the process logger.
// Info is demoted to debug; Badger is chatty at startup.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any)   { logger.Error(fmt.Sprintf(f, v...), logger.KeyStore, "badger") }
func (badgerLogger) Warningf(f string, v ...any) { logger.Warn(fmt.Sprintf(f, v...), logger.KeyStore, "badger") }
func (badgerLogger) Infof(f string, v ...any)    { logger.Debug(fmt.Sprintf(f, v...), logger.KeyStore, "badger") }
func (badgerLogger) Debugf(f string, v ...any)   { logger.Debug(fmt.Sprintf(f, v...), logger.KeyStore, "badger") }

var _ store.Store = (*Store)(nil)
