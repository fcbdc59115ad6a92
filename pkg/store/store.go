// Package store is the key-value abstraction behind every persisted
// labelhub record.
//
// Records are addressed by (Kind, token). The token is validated before the
// key is built, so untrusted input never reaches a backend as a raw key.
// Backends live in subpackages (memory, badger, database) and all pass the
// storetest conformance suite.
//
// Key layout:
//
//	+-----------+--------------------+-----------------------------+
//	| Kind      | Key                | Value                       |
//	+-----------+--------------------+-----------------------------+
//	| shard     | shard:<token>      | ShardRecord (JSON)          |
//	| labels    | labels:<token>     | LabelRecord (JSON)          |
//	| progress  | progress:<token>   | ProgressRecord (JSON)       |
//	| corpus    | corpus:default     | CorpusRecord (JSON)         |
//	+-----------+--------------------+-----------------------------+
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/labelhub/pkg/token"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")

	// ErrUnknownKind is returned for a Kind outside the known set.
	ErrUnknownKind = errors.New("unknown record kind")
)

// Kind is the record namespace.
type Kind string

const (
	KindShard    Kind = "shard"
	KindLabels   Kind = "labels"
	KindProgress Kind = "progress"
	KindCorpus   Kind = "corpus"
)

// CorpusKey is the token slot used by the singleton corpus record.
const CorpusKey = "default"

// Kinds lists every valid Kind.
func Kinds() []Kind {
	return []Kind{KindShard, KindLabels, KindProgress, KindCorpus}
}

// Valid reports whether k is a known Kind.
func (k Kind) Valid() bool {
	switch k {
	case KindShard, KindLabels, KindProgress, KindCorpus:
		return true
	}
	return false
}

// Store is a flat key-value store partitioned by Kind.
type Store interface {
	// Get returns the value stored under (kind, token) or ErrNotFound.
	Get(ctx context.Context, kind Kind, token string) ([]byte, error)

	// Put stores value under (kind, token), replacing any previous value.
	Put(ctx context.Context, kind Kind, token string, value []byte) error

	// Delete removes (kind, token). Deleting a missing key is not an error.
	Delete(ctx context.Context, kind Kind, token string) error

	// List returns the tokens stored under kind, sorted.
	List(ctx context.Context, kind Kind) ([]string, error)

	// Healthcheck verifies the backend is usable.
	Healthcheck(ctx context.Context) error

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

// Key validates kind and token and returns "kind:token".
func Key(kind Kind, tok string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := token.Validate(tok); err != nil {
		return "", err
	}
	return string(kind) + ":" + tok, nil
}

// Prefix returns the key prefix shared by every record of kind.
func Prefix(kind Kind) string {
	return string(kind) + ":"
}

// SplitKey reverses Key. It reports false for malformed keys.
func SplitKey(key string) (Kind, string, bool) {
	k, tok, ok := strings.Cut(key, ":")
	if !ok || !Kind(k).Valid() || tok == "" {
		return "", "", false
	}
	return Kind(k), tok, true
}
