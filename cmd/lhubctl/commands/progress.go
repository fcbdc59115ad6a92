package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/internal/cli/timeutil"
	"github.com/marmos91/labelhub/pkg/progress"
)

var progressAll bool

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show labeling progress",
	Long: `Show your progress as recorded by the server. --all lists every worker.

Examples:
  lhubctl progress
  lhubctl progress --all -o json`,
	RunE: runProgress,
}

func init() {
	progressCmd.Flags().BoolVar(&progressAll, "all", false, "Show every worker")
}

// ProgressView is a progress report narrowed to the rows to show.
type ProgressView struct {
	Summary progress.Summary `json:"summary" yaml:"summary"`
	Workers []progress.Row   `json:"rows" yaml:"rows"`
	At      time.Time        `json:"at" yaml:"at"`
	self    string
}

func (v ProgressView) Headers() []string {
	return []string{"Token", "Progress", "Done", "Submitted", "Updated"}
}

func (v ProgressView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Workers))
	for _, r := range v.Workers {
		name := r.Token
		if r.Token == v.self {
			name += " (you)"
		}
		submitted := "no"
		if r.Submitted {
			submitted = "yes"
		}
		rows = append(rows, []string{
			name,
			output.Bar(r.Processed, r.Total),
			fmt.Sprintf("%d/%d", r.Processed, r.Total),
			submitted,
			timeutil.FormatAge(r.LastUpdate, v.At),
		})
	}
	return rows
}

// narrow keeps only tok's row unless all is set.
func narrow(report *progress.Report, tok string, all bool) ProgressView {
	v := ProgressView{Summary: report.Summary, At: report.At, self: tok}
	for _, r := range report.Rows {
		if all || r.Token == tok {
			v.Workers = append(v.Workers, r)
		}
	}
	return v
}

func runProgress(cmd *cobra.Command, args []string) error {
	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	target, err := cmdutil.Resolve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report, err := target.Client().Progress(ctx)
	if err != nil {
		return err
	}

	view := narrow(report, target.Context.Token, progressAll)
	if err := p.Print(view); err != nil {
		return err
	}
	if !p.Structured() && progressAll {
		s := view.Summary
		p.Printf("\nOverall %s %d/%d\n", output.Bar(s.Processed, s.Total), s.Processed, s.Total)
	}
	return nil
}
