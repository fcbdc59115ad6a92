package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/marmos91/labelhub/internal/logger"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 2 * time.Second

// Row is one token's line on the dashboard.
type Row struct {
	Record
	Submitted bool `json:"submitted" yaml:"submitted"`
}

// Report is what the dashboard renders on each tick.
type Report struct {
	Summary Summary   `json:"summary" yaml:"summary"`
	Rows    []Row     `json:"rows" yaml:"rows"`
	At      time.Time `json:"at" yaml:"at"`
}

// Source produces a fresh Report.
type Source interface {
	Progress(ctx context.Context) (*Report, error)
}

// Metrics receives the values shown on each tick. A nil Metrics disables
// collection.
type Metrics interface {
	SetTokenProgress(token string, processed, total int, submitted bool)
	SetSummary(s Summary)
}

// Dashboard periodically renders a Report.
type Dashboard struct {
	source   Source
	out      io.Writer
	interval time.Duration
	metrics  Metrics

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDashboard returns a Dashboard writing to out. A nil out only updates
// metrics. An interval of zero or less uses DefaultInterval.
func NewDashboard(source Source, out io.Writer, interval time.Duration, metrics Metrics) *Dashboard {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Dashboard{
		source:   source,
		out:      out,
		interval: interval,
		metrics:  metrics,
	}
}

// Start launches the polling goroutine. It returns immediately; calling it
// while running is a no-op.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopCh != nil {
		return
	}
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.run(ctx, d.stopCh, d.doneCh)
}

// Stop halts polling and waits for the goroutine to exit.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	stopCh, doneCh := d.stopCh, d.doneCh
	d.stopCh, d.doneCh = nil, nil
	d.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (d *Dashboard) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick polls the source once, updates metrics and renders.
func (d *Dashboard) Tick(ctx context.Context) {
	report, err := d.source.Progress(ctx)
	if err != nil {
		logger.Warn("Dashboard refresh failed", logger.KeyError, err)
		return
	}

	if d.metrics != nil {
		for _, row := range report.Rows {
			d.metrics.SetTokenProgress(row.Token, row.Processed, row.Total, row.Submitted)
		}
		d.metrics.SetSummary(report.Summary)
	}

	if d.out != nil {
		Render(d.out, report)
	}
}

// Render writes report as a table. The first line carries the aggregate.
func Render(w io.Writer, report *Report) {
	s := report.Summary
	_, _ = fmt.Fprintf(w, "Progress: %d/%d (%.1f%%)  updated %s\n",
		s.Processed, s.Total, s.Ratio*100, report.At.Format(time.TimeOnly))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Token", "Processed", "Percent", "Last update", "Submitted"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range report.Rows {
		submitted := "❌"
		if row.Submitted {
			submitted = "✅"
		}
		last := "-"
		if !row.LastUpdate.IsZero() {
			last = row.LastUpdate.Local().Format(time.DateTime)
		}
		table.Append([]string{
			row.Token,
			fmt.Sprintf("%d/%d", row.Processed, row.Total),
			fmt.Sprintf("%.1f%%", row.Ratio()*100),
			last,
			submitted,
		})
	}
	table.Render()
}
