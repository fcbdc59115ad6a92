// Package progress tracks how far each worker has got through its shard.
package progress

import (
	"sort"
	"sync"
	"time"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// Record is the progress last reported for one token.
type Record struct {
	Token      string    `json:"token" yaml:"token"`
	Total      int       `json:"total_images" yaml:"total_images"`
	Processed  int       `json:"processed_images" yaml:"processed_images"`
	LastUpdate time.Time `json:"last_update" yaml:"last_update"`
}

// Ratio returns processed/total, or 0 for an empty shard.
func (r Record) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Processed) / float64(r.Total)
}

// Summary aggregates every token.
type Summary struct {
	Processed int     `json:"processed" yaml:"processed"`
	Total     int     `json:"total" yaml:"total"`
	Ratio     float64 `json:"ratio" yaml:"ratio"`
}

// Tracker holds one Record per token. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func clamp(total, processed int) (int, int) {
	if total < 0 {
		total = 0
	}
	if processed < 0 {
		processed = 0
	}
	if processed > total {
		processed = total
	}
	return total, processed
}

// Upsert replaces the record for token. A zero ts means now.
func (t *Tracker) Upsert(token string, total, processed int, ts time.Time) Record {
	total, processed = clamp(total, processed)
	if ts.IsZero() {
		ts = t.now()
	}
	rec := Record{Token: token, Total: total, Processed: processed, LastUpdate: ts.UTC()}

	t.mu.Lock()
	t.records[token] = rec
	t.mu.Unlock()
	return rec
}

// Decrement lowers processed by one, never below zero, and refreshes the
// timestamp.
func (t *Tracker) Decrement(token string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[token]
	if !ok {
		return Record{}, lherrors.NewNotFoundError(token, "progress")
	}
	if rec.Processed > 0 {
		rec.Processed--
	}
	rec.LastUpdate = t.now().UTC()
	t.records[token] = rec
	return rec, nil
}

// Get returns the record for token.
func (t *Tracker) Get(token string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[token]
	return rec, ok
}

// Aggregate sums every record.
func (t *Tracker) Aggregate() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var s Summary
	for _, rec := range t.records {
		s.Processed += rec.Processed
		s.Total += rec.Total
	}
	if s.Total > 0 {
		s.Ratio = float64(s.Processed) / float64(s.Total)
	}
	return s
}

// Snapshot returns every record sorted by token.
func (t *Tracker) Snapshot() []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Load replaces the tracker contents, typically from persisted records at
// startup. Values are clamped like Upsert.
func (t *Tracker) Load(records []Record) {
	m := make(map[string]Record, len(records))
	for _, rec := range records {
		rec.Total, rec.Processed = clamp(rec.Total, rec.Processed)
		m[rec.Token] = rec
	}

	t.mu.Lock()
	t.records = m
	t.mu.Unlock()
}

// Len returns the number of tracked tokens.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
