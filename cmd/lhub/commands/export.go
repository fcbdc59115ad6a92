package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/pkg/config"
	"github.com/marmos91/labelhub/pkg/merge"
)

var (
	exportOut  string
	exportFrom string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy consistently labeled images into per-category directories",
	Long: `Copy every image whose labels agree into <out>/<category>/<image>.
Conflicting images are left out. Existing files are never overwritten.

By default the consistent set is read from the merge output directory, so
run 'lhub merge' first. --from points at another consistent.json.

Examples:
  lhub export --out ./sorted
  lhub export --out ./sorted --from ./results/consistent.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Destination directory (required)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "consistent.json to export (default: <merge.output_dir>/consistent.json)")
	_ = exportCmd.MarkFlagRequired("out")
}

// ExportSummary reports an export.
type ExportSummary struct {
	Source string `json:"source" yaml:"source"`
	Out    string `json:"out" yaml:"out"`
	merge.ExportStats `yaml:",inline"`
}

func (s ExportSummary) Headers() []string { return []string{"Copied", "Skipped", "Failed"} }

func (s ExportSummary) Rows() [][]string {
	return [][]string{{fmt.Sprintf("%d", s.Copied), fmt.Sprintf("%d", s.Skipped), fmt.Sprintf("%d", s.Failed)}}
}

func runExport(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	from := exportFrom
	if from == "" {
		from = filepath.Join(cfg.Merge.OutputDir, merge.ConsistentFile)
	}
	consistent, err := merge.ReadSet(from)
	if err != nil {
		return fmt.Errorf("failed to read consistent set (run 'lhub merge' first): %w", err)
	}

	ctx := context.Background()
	src, err := config.CreateOrigin(ctx, cfg.Origin, nil)
	if err != nil {
		return fmt.Errorf("failed to create image origin: %w", err)
	}

	stats, err := merge.Export(ctx, src, consistent, exportOut)
	if err != nil {
		return err
	}

	if !p.Structured() {
		p.Success(fmt.Sprintf("Exported %d of %d images to %s", stats.Copied, len(consistent), exportOut))
		if stats.Failed > 0 {
			p.Warning(fmt.Sprintf("%d images could not be copied, see the log", stats.Failed))
		}
	}
	return p.Print(ExportSummary{Source: from, Out: exportOut, ExportStats: stats})
}
