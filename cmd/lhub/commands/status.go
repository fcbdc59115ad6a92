package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/internal/cli/timeutil"
	"github.com/marmos91/labelhub/pkg/apiclient"
	"github.com/marmos91/labelhub/pkg/config"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/token"
)

var (
	statusServer string
	statusToken  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and labeling progress",
	Long: `Query a running server for its health and the progress of every token.

The progress endpoint requires a worker token; by default the first token of
the token file is used.

Examples:
  lhub status
  lhub status --server http://labels.internal:8080 --token 001_001_abc
  lhub status -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "Server URL (default: http://localhost:<server.port>)")
	statusCmd.Flags().StringVar(&statusToken, "token", "", "Token used to read progress (default: first token of the token file)")
}

// ServerStatus is the combined health and progress view.
type ServerStatus struct {
	Server  string           `json:"server" yaml:"server"`
	Healthy bool             `json:"healthy" yaml:"healthy"`
	Message string           `json:"message,omitempty" yaml:"message,omitempty"`
	Latency string           `json:"latency,omitempty" yaml:"latency,omitempty"`
	Report  *progress.Report `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// ProgressTable renders a progress report, one row per token.
type ProgressTable struct {
	Report *progress.Report
	Now    time.Time
}

func (t ProgressTable) Headers() []string {
	return []string{"Token", "Progress", "Done", "Submitted", "Updated"}
}

func (t ProgressTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Report.Rows)+1)
	for _, r := range t.Report.Rows {
		submitted := "no"
		if r.Submitted {
			submitted = "yes"
		}
		rows = append(rows, []string{
			r.Token,
			output.Bar(r.Processed, r.Total),
			fmt.Sprintf("%d/%d", r.Processed, r.Total),
			submitted,
			timeutil.FormatAge(r.LastUpdate, t.Now),
		})
	}
	s := t.Report.Summary
	rows = append(rows, []string{
		"TOTAL",
		output.Bar(s.Processed, s.Total),
		fmt.Sprintf("%d/%d", s.Processed, s.Total),
		"",
		"",
	})
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	server := statusServer
	if server == "" {
		server = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	tok := statusToken
	if tok == "" {
		if f, err := token.ReadFile(cfg.Tokens.File); err == nil && len(f.Tokens) > 0 {
			tok = f.Tokens[0]
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := apiclient.New(server).WithToken(tok)
	status := ServerStatus{Server: server}

	h, err := client.Health(ctx)
	switch {
	case err != nil:
		status.Message = err.Error()
	case !h.Healthy():
		status.Message = h.Error
	default:
		status.Healthy = true
		status.Latency = h.Data.Latency
	}

	if status.Healthy && tok != "" {
		report, err := client.Progress(ctx)
		if err != nil {
			status.Message = fmt.Sprintf("progress unavailable: %v", err)
		} else {
			status.Report = report
		}
	}

	if p.Structured() {
		return p.Print(status)
	}

	pairs := [][2]string{{"Server", server}}
	if status.Healthy {
		pairs = append(pairs, [2]string{"Health", "healthy (" + status.Latency + ")"})
	} else {
		pairs = append(pairs, [2]string{"Health", "unreachable or unhealthy"})
	}
	if status.Message != "" {
		pairs = append(pairs, [2]string{"Message", status.Message})
	}
	if err := output.KeyValues(p.Writer(), pairs); err != nil {
		return err
	}
	if status.Report != nil {
		p.Println()
		return p.Print(ProgressTable{Report: status.Report, Now: time.Now()})
	}
	if !status.Healthy {
		return fmt.Errorf("server %s is not healthy", server)
	}
	return nil
}
