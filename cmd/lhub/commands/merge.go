package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/pkg/merge"
)

var mergeOut string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge every worker's labels",
	Long: `Combine the labels submitted by every token and write three files:

  merged.json      every image with all of its entries
  conflict.json    images whose entries disagree on the category
  consistent.json  images whose entries all agree

The server must be stopped: the command opens the record store directly.

Examples:
  lhub merge
  lhub merge --out ./results`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Output directory (default: merge.output_dir from the configuration)")
}

// MergeSummary counts the images in each merge output.
type MergeSummary struct {
	Dir        string   `json:"dir" yaml:"dir"`
	Tokens     []string `json:"tokens" yaml:"tokens"`
	Merged     int      `json:"merged" yaml:"merged"`
	Conflict   int      `json:"conflict" yaml:"conflict"`
	Consistent int      `json:"consistent" yaml:"consistent"`
}

func (s MergeSummary) Headers() []string { return []string{"File", "Images"} }

func (s MergeSummary) Rows() [][]string {
	return [][]string{
		{filepath.Join(s.Dir, merge.MergedFile), fmt.Sprintf("%d", s.Merged)},
		{filepath.Join(s.Dir, merge.ConflictFile), fmt.Sprintf("%d", s.Conflict)},
		{filepath.Join(s.Dir, merge.ConsistentFile), fmt.Sprintf("%d", s.Consistent)},
	}
}

func runMerge(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := mergeOut
	if dir == "" {
		dir = cfg.Merge.OutputDir
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.svc.RunMerge(ctx)
	if err != nil {
		return err
	}
	if err := res.WriteFiles(dir); err != nil {
		return err
	}

	summary := MergeSummary{
		Dir:        dir,
		Tokens:     res.Tokens,
		Merged:     len(res.Merged),
		Conflict:   len(res.Conflict),
		Consistent: len(res.Consistent),
	}
	if !p.Structured() {
		p.Success(fmt.Sprintf("Merged labels of %d tokens", len(res.Tokens)))
		if summary.Conflict > 0 {
			p.Warning(fmt.Sprintf("%d images have conflicting labels", summary.Conflict))
		}
	}
	return p.Print(summary)
}
