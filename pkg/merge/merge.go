// Package merge combines every worker's labels per image and splits the
// result into images the workers agree on and images they dispute.
//
// A merge is a pure function of the stored label logs: running it twice on
// the same logs produces byte-identical output.
package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/store"
)

// Output file names written by WriteFiles.
const (
	MergedFile     = "merged.json"
	ConflictFile   = "conflict.json"
	ConsistentFile = "consistent.json"
)

// maxParallelLoads bounds concurrent label reads.
const maxParallelLoads = 8

// Source is the read side of the label store.
type Source interface {
	ListLabelTokens(ctx context.Context) ([]string, error)
	GetLabels(ctx context.Context, token string) (*store.LabelRecord, error)
}

// Set maps an image to its label entries.
type Set map[string][]labels.Entry

// Images returns the keys of s, sorted.
func (s Set) Images() []string {
	out := make([]string, 0, len(s))
	for img := range s {
		out = append(out, img)
	}
	sort.Strings(out)
	return out
}

// Result is the outcome of one merge.
type Result struct {
	Tokens     []string `json:"tokens"`
	Merged     Set      `json:"merged"`
	Conflict   Set      `json:"conflict"`
	Consistent Set      `json:"consistent"`
}

// Merge loads every token's log and combines them. Entries are concatenated
// in token order, then in each log's own order. Any read failure aborts the
// whole batch.
func Merge(ctx context.Context, src Source) (*Result, error) {
	tokens, err := src.ListLabelTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list label tokens: %w", err)
	}
	sort.Strings(tokens)

	logs := make([]*labels.Log, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, tok := range tokens {
		g.Go(func() error {
			rec, err := src.GetLabels(gctx, tok)
			if err != nil {
				return fmt.Errorf("load labels for %s: %w", tok, err)
			}
			logs[i] = rec.Log
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := labels.New()
	for _, l := range logs {
		combined.Append(l)
	}

	res := Classify(combined.Records())
	res.Tokens = tokens

	logger.Info("Merge complete",
		"tokens", len(tokens),
		"images", len(res.Merged),
		"conflicts", len(res.Conflict),
		"consistent", len(res.Consistent))
	return res, nil
}

// Classify splits merged records into conflict and consistent sets. Images
// with no entries appear in neither.
func Classify(merged map[string][]labels.Entry) *Result {
	res := &Result{
		Merged:     make(Set, len(merged)),
		Conflict:   make(Set),
		Consistent: make(Set),
	}
	for img, entries := range merged {
		if len(entries) == 0 {
			continue
		}
		res.Merged[img] = entries

		switch distinctCategories(entries) {
		case 1:
			res.Consistent[img] = entries
		default:
			res.Conflict[img] = entries
		}
	}
	return res
}

func distinctCategories(entries []labels.Entry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Category] = struct{}{}
	}
	return len(seen)
}

// Category returns the agreed category of a consistent image.
func (r *Result) Category(image string) (string, bool) {
	entries, ok := r.Consistent[image]
	if !ok || len(entries) == 0 {
		return "", false
	}
	return entries[0].Category, true
}

// Encode renders a set as indented JSON. Map keys are sorted by
// encoding/json, so the output is deterministic.
func Encode(s Set) ([]byte, error) {
	if s == nil {
		s = Set{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFiles writes the merged, conflict and consistent sets into dir.
func (r *Result) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := []struct {
		name string
		set  Set
	}{
		{MergedFile, r.Merged},
		{ConflictFile, r.Conflict},
		{ConsistentFile, r.Consistent},
	}
	for _, f := range files {
		data, err := Encode(f.set)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// ReadSet loads a set written by WriteFiles.
func ReadSet(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}
