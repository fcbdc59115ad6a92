package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/partition"
	"github.com/marmos91/labelhub/pkg/progress"
)

func TestProgressTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &progress.Report{
		Summary: progress.Summary{Total: 7, Processed: 4},
		Rows: []progress.Row{
			{Record: progress.Record{Token: "001_001_abc", Total: 4, Processed: 4, LastUpdate: now.Add(-2 * time.Minute)}, Submitted: true},
			{Record: progress.Record{Token: "001_002_def", Total: 3}},
		},
		At: now,
	}

	rows := ProgressTable{Report: report, Now: now}.Rows()
	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"001_001_abc", "[####################] 100.0%", "4/4", "yes", "2m0s ago"}, rows[0])
	assert.Equal(t, "never", rows[1][4])
	assert.Equal(t, "TOTAL", rows[2][0])
	assert.Equal(t, "4/7", rows[2][2])
}

func TestShardSummary(t *testing.T) {
	res := &coordinator.DistributeResult{
		Files:  3,
		Tokens: 2,
		Shards: []partition.Assignment{
			{Token: "001_001_abc", Files: []string{"a.png", "b.png"}},
			{Token: "001_002_def", Files: nil},
		},
	}

	rows := newShardSummary(res).Rows()
	assert.Equal(t, []string{"001_001_abc", "2", "a.png", "b.png"}, rows[0])
	assert.Equal(t, []string{"001_002_def", "0", "-", "-"}, rows[1])
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "tokens", "distribute", "merge", "export", "status", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
