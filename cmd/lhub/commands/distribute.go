package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/partition"
)

var distributeForce bool

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Split the corpus into one shard per token",
	Long: `List the images of the configured origin and split them over every token
of the token file. Each token gets floor(N/T) images and the first N mod T
tokens get one more.

The server must be stopped: the command opens the record store directly.

Examples:
  lhub distribute

  # Replace an existing distribution. Submitted labels are kept.
  lhub distribute --force`,
	RunE: runDistribute,
}

func init() {
	distributeCmd.Flags().BoolVarP(&distributeForce, "force", "f", false, "Replace an existing distribution")
}

// ShardSummary lists shard sizes per token.
type ShardSummary struct {
	Files  int                    `json:"files" yaml:"files"`
	Tokens int                    `json:"tokens" yaml:"tokens"`
	Shards []partition.Assignment `json:"shards" yaml:"shards"`
}

func newShardSummary(res *coordinator.DistributeResult) ShardSummary {
	return ShardSummary{Files: res.Files, Tokens: res.Tokens, Shards: res.Shards}
}

func (s ShardSummary) Headers() []string { return []string{"Token", "Images", "First", "Last"} }

func (s ShardSummary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Shards))
	for _, a := range s.Shards {
		first, last := "-", "-"
		if n := len(a.Files); n > 0 {
			first, last = a.Files[0], a.Files[n-1]
		}
		rows = append(rows, []string{a.Token, fmt.Sprintf("%d", len(a.Files)), first, last})
	}
	return rows
}

func runDistribute(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.svc.Distribute(ctx, distributeForce)
	if err != nil {
		return err
	}

	if !p.Structured() {
		p.Success(fmt.Sprintf("Distributed %d images over %d tokens", res.Files, res.Tokens))
	}
	return p.Print(newShardSummary(res))
}
