package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/progress"
)

func TestShardViewState(t *testing.T) {
	v := ShardView{
		Token:     "001_001_abc",
		Offset:    1,
		Total:     5,
		Files:     []string{"b.png", "c.png", "d.png"},
		Submitted: 2,
		Pending:   1,
	}

	rows := v.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2", "b.png", "submitted"}, rows[0])
	assert.Equal(t, []string{"3", "c.png", "labeled"}, rows[1])
	assert.Equal(t, []string{"4", "d.png", ""}, rows[2])
}

func TestNarrowProgress(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &progress.Report{
		Summary: progress.Summary{Total: 7, Processed: 5},
		Rows: []progress.Row{
			{Record: progress.Record{Token: "001_001_abc", Total: 4, Processed: 4, LastUpdate: now.Add(-time.Minute)}, Submitted: true},
			{Record: progress.Record{Token: "001_002_def", Total: 3, Processed: 1}},
		},
		At: now,
	}

	t.Run("Self", func(t *testing.T) {
		v := narrow(report, "001_002_def", false)
		rows := v.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "001_002_def (you)", rows[0][0])
		assert.Equal(t, "1/3", rows[0][2])
		assert.Equal(t, "no", rows[0][3])
		assert.Equal(t, "never", rows[0][4])
	})

	t.Run("All", func(t *testing.T) {
		v := narrow(report, "001_002_def", true)
		rows := v.Rows()
		require.Len(t, rows, 2)
		assert.Equal(t, "001_001_abc", rows[0][0])
		assert.Equal(t, "yes", rows[0][3])
		assert.Equal(t, "1m0s ago", rows[0][4])
		assert.Equal(t, 5, v.Summary.Processed)
	})
}

func TestUndoAndSubmitViews(t *testing.T) {
	u := UndoView{Where: "server", Undone: labels.Event{Image: "a.png", Category: "cat"}, Remaining: 3}
	assert.Equal(t, [][]string{{"server", "a.png", "cat", "3"}}, u.Rows())

	s := SubmitView{Token: "001_001_abc", Key: "k1", Accepted: 2, Total: 6, Duplicate: true}
	assert.Equal(t, [][]string{{"001_001_abc", "2", "6", "yes", "k1"}}, s.Rows())
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "shard", "label", "progress", "submit", "undo", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
