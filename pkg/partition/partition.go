// Package partition splits an ordered corpus into per-token shards.
//
// The split is contiguous and deterministic: with N files and M tokens the
// first N%M tokens receive N/M+1 files and the rest receive N/M, walking the
// input with a single forward cursor. Concatenating the shards in token order
// gives back the original list.
package partition

import (
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/token"
)

// Assignment is one token's shard.
type Assignment struct {
	Token string   `json:"token" yaml:"token"`
	Files []string `json:"files" yaml:"files"`
}

// Plan returns the assignments in token order. It fails with a ConfigError
// when tokens is empty, when a token is invalid, or when a token repeats.
// An empty file list yields an empty shard per token.
func Plan(files, tokens []string) ([]Assignment, error) {
	m := len(tokens)
	if m == 0 {
		return nil, lherrors.NewConfigError("cannot partition %d files across zero workers", len(files))
	}

	seen := make(map[string]struct{}, m)
	for _, t := range tokens {
		if err := token.Validate(t); err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			return nil, lherrors.NewConfigError("token %q appears more than once", t)
		}
		seen[t] = struct{}{}
	}

	avg, extra := len(files)/m, len(files)%m
	plan := make([]Assignment, 0, m)
	cursor := 0
	for i, t := range tokens {
		n := avg
		if i < extra {
			n++
		}
		shard := make([]string, n)
		copy(shard, files[cursor:cursor+n])
		cursor += n
		plan = append(plan, Assignment{Token: t, Files: shard})
	}
	return plan, nil
}

// Partition is Plan keyed by token.
func Partition(files, tokens []string) (map[string][]string, error) {
	plan, err := Plan(files, tokens)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(plan))
	for _, a := range plan {
		out[a.Token] = a.Files
	}
	return out, nil
}

// Sizes returns the shard sizes of plan in token order.
func Sizes(plan []Assignment) []int {
	sizes := make([]int, len(plan))
	for i, a := range plan {
		sizes[i] = len(a.Files)
	}
	return sizes
}
