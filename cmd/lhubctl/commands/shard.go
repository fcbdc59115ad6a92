package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
)

var (
	shardOffset int
	shardLimit  int
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "List the images assigned to your token",
	Long: `List the images of your shard in labeling order. The state column shows
which images are already submitted and which are labeled locally.

Examples:
  lhubctl shard
  lhubctl shard --offset 100 --limit 50
  lhubctl shard -o json`,
	RunE: runShard,
}

func init() {
	shardCmd.Flags().IntVar(&shardOffset, "offset", 0, "Skip this many images")
	shardCmd.Flags().IntVar(&shardLimit, "limit", 0, "Show at most this many images, up to 500 (0: all)")
}

// ShardView is one page of the shard with local labeling state.
type ShardView struct {
	Token     string   `json:"token" yaml:"token"`
	Offset    int      `json:"offset" yaml:"offset"`
	Total     int      `json:"total" yaml:"total"`
	Files     []string `json:"files" yaml:"files"`
	Submitted int      `json:"submitted" yaml:"submitted"`
	Pending   int      `json:"pending" yaml:"pending"`
}

func (v ShardView) state(index int) string {
	switch {
	case index < v.Submitted:
		return "submitted"
	case index < v.Submitted+v.Pending:
		return "labeled"
	}
	return ""
}

func (v ShardView) Headers() []string { return []string{"#", "Image", "State"} }

func (v ShardView) Rows() [][]string {
	rows := make([][]string, len(v.Files))
	for i, f := range v.Files {
		idx := v.Offset + i
		rows[i] = []string{fmt.Sprintf("%d", idx+1), f, v.state(idx)}
	}
	return rows
}

func runShard(cmd *cobra.Command, args []string) error {
	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	target, err := cmdutil.Resolve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := target.Client()
	view := ShardView{Token: target.Context.Token, Offset: shardOffset}
	if shardLimit > 0 {
		page, err := client.ListShardPage(ctx, shardOffset, shardLimit)
		if err != nil {
			return err
		}
		view.Files, view.Total = page.Files, page.Total
	} else {
		files, err := client.GetShard(ctx)
		if err != nil {
			return err
		}
		view.Total = len(files)
		view.Files = files[min(max(shardOffset, 0), len(files)):]
	}

	// The local store is locked while 'lhubctl label' runs; the listing
	// then goes without state.
	if records, closeFn, err := target.OpenLocal(); err == nil {
		rec, err := records.GetLabels(ctx, target.Context.Token)
		switch {
		case err == nil:
			view.Submitted, view.Pending = rec.Submitted, rec.Log.Len()
		case !lherrors.IsNotFound(err):
			p.Warning(fmt.Sprintf("cannot read local labels: %v", err))
		}
		closeFn()
	}

	return p.Print(view)
}
