// Package labels holds a worker's classifications: an image to entries
// mapping plus the ordered event log that makes undo exact.
//
// A Log is not safe for concurrent use. The session and the coordinator
// serialize access per token.
package labels

import (
	"encoding/json"
	"sort"
	"time"

	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

// Entry is one label assigned to an image.
type Entry struct {
	Category string `json:"category"`
	Worker   string `json:"worker"`
}

// Event is one classification in the order it happened. The events of a
// Log double as its undo stack.
type Event struct {
	Image    string    `json:"image"`
	Category string    `json:"category"`
	Worker   string    `json:"worker"`
	At       time.Time `json:"at"`
}

// Entry returns the label the event recorded.
func (e Event) Entry() Entry {
	return Entry{Category: e.Category, Worker: e.Worker}
}

// Log is an append-only classification store with undo.
type Log struct {
	records map[string][]Entry
	events  []Event
}

// New returns an empty Log.
func New() *Log {
	return &Log{records: make(map[string][]Entry)}
}

// FromEvents rebuilds a Log by replaying events in order.
func FromEvents(events []Event) (*Log, error) {
	l := New()
	for _, e := range events {
		if err := l.Classify(e.Image, e.Category, e.Worker, e.At); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Classify appends {category, worker} to image's entries and pushes the
// event on the undo stack.
func (l *Log) Classify(image, category, worker string, at time.Time) error {
	if image == "" {
		return lherrors.NewConfigError("image name is required")
	}
	if category == "" {
		return lherrors.NewConfigError("category is required")
	}
	if worker == "" {
		return lherrors.NewConfigError("worker is required")
	}

	ev := Event{Image: image, Category: category, Worker: worker, At: at.UTC()}
	if l.records == nil {
		l.records = make(map[string][]Entry)
	}
	l.records[image] = append(l.records[image], ev.Entry())
	l.events = append(l.events, ev)
	return nil
}

// Undo pops the most recent event and removes exactly the entry it added.
// An image whose entry list becomes empty is removed.
func (l *Log) Undo() (Event, error) {
	if len(l.events) == 0 {
		return Event{}, lherrors.NewNoRecordsError("", "no classification to undo")
	}
	ev := l.events[len(l.events)-1]

	entries := l.records[ev.Image]
	idx := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i] == ev.Entry() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Event{}, lherrors.NewDataFormatError("classification log: undo event has no matching entry", nil)
	}

	entries = append(entries[:idx:idx], entries[idx+1:]...)
	if len(entries) == 0 {
		delete(l.records, ev.Image)
	} else {
		l.records[ev.Image] = entries
	}
	l.events = l.events[:len(l.events)-1]
	return ev, nil
}

// Append replays other's events on top of l, preserving their order.
func (l *Log) Append(other *Log) {
	if l.records == nil {
		l.records = make(map[string][]Entry)
	}
	for _, ev := range other.events {
		l.records[ev.Image] = append(l.records[ev.Image], ev.Entry())
		l.events = append(l.events, ev)
	}
}

// Len returns the number of entries across all images.
func (l *Log) Len() int {
	return len(l.events)
}

// IsEmpty reports whether the log has no entries.
func (l *Log) IsEmpty() bool {
	return len(l.events) == 0
}

// Images returns the classified image names, sorted.
func (l *Log) Images() []string {
	out := make([]string, 0, len(l.records))
	for img := range l.records {
		out = append(out, img)
	}
	sort.Strings(out)
	return out
}

// Entries returns a copy of image's entries in classification order.
func (l *Log) Entries(image string) []Entry {
	return append([]Entry(nil), l.records[image]...)
}

// Records returns a copy of the image to entries mapping.
func (l *Log) Records() map[string][]Entry {
	out := make(map[string][]Entry, len(l.records))
	for img, entries := range l.records {
		out[img] = append([]Entry(nil), entries...)
	}
	return out
}

// Events returns a copy of the event log, oldest first.
func (l *Log) Events() []Event {
	return append([]Event(nil), l.events...)
}

// Last returns the most recent event, if any.
func (l *Log) Last() (Event, bool) {
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Split returns the first n events and the rest as two new logs. n is
// clamped to [0, Len].
func (l *Log) Split(n int) (head, tail *Log) {
	n = max(0, min(n, len(l.events)))
	head, tail = New(), New()
	head.Append(&Log{events: l.events[:n]})
	tail.Append(&Log{events: l.events[n:]})
	return head, tail
}

// Clone returns a deep copy.
func (l *Log) Clone() *Log {
	c := New()
	c.Append(l)
	return c
}

// Reset drops every entry and event.
func (l *Log) Reset() {
	l.records = make(map[string][]Entry)
	l.events = nil
}

type logJSON struct {
	Records map[string][]Entry `json:"records"`
	Events  []Event            `json:"events"`
}

// MarshalJSON writes both the mapping and the event log. The mapping is
// informational; UnmarshalJSON rebuilds it from the events.
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(logJSON{Records: l.records, Events: l.events})
}

// UnmarshalJSON replays the encoded events.
func (l *Log) UnmarshalJSON(data []byte) error {
	var raw logJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rebuilt, err := FromEvents(raw.Events)
	if err != nil {
		return err
	}
	*l = *rebuilt
	return nil
}
