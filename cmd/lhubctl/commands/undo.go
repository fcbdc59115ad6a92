package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	"github.com/marmos91/labelhub/internal/cli/prompt"
	"github.com/marmos91/labelhub/pkg/apiclient"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/session"
)

var (
	undoLocal bool
	undoForce bool
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Remove the most recent label",
	Long: `Remove the most recent submitted label on the server and decrement your
progress. Unsubmitted labels must be undone or submitted first; --local
removes the most recent unsubmitted label instead.

Examples:
  lhubctl undo
  lhubctl undo --local
  lhubctl undo --force`,
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVar(&undoLocal, "local", false, "Undo the last unsubmitted label")
	undoCmd.Flags().BoolVarP(&undoForce, "force", "f", false, "Do not ask for confirmation")
}

// UndoView reports an undone label.
type UndoView struct {
	Where     string       `json:"where" yaml:"where"`
	Undone    labels.Event `json:"undone" yaml:"undone"`
	Remaining int          `json:"remaining" yaml:"remaining"`
}

func (v UndoView) Headers() []string { return []string{"Where", "Image", "Category", "Remaining"} }

func (v UndoView) Rows() [][]string {
	return [][]string{{v.Where, v.Undone.Image, v.Undone.Category, fmt.Sprintf("%d", v.Remaining)}}
}

func runUndo(cmd *cobra.Command, args []string) error {
	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	target, err := cmdutil.Resolve()
	if err != nil {
		return err
	}

	where := "server"
	if undoLocal {
		where = "local"
	}
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Undo the last %s label?", where), undoForce)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	local, closeLocal, err := target.OpenLocal()
	if err != nil {
		return err
	}
	defer closeLocal()

	sess, err := session.Open(ctx, target.Client(), local, target.Context.Token, session.WithoutPrefetch())
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	view := UndoView{Where: where}
	if undoLocal {
		view.Undone, err = sess.Undo(ctx)
		view.Remaining = sess.Pending().Len()
	} else {
		var res *apiclient.UndoResult
		res, err = sess.UndoRemote(ctx)
		if res != nil {
			view.Undone, view.Remaining = res.Undone, res.Remaining
		}
	}
	// The undo itself is stored; only the progress report failed.
	if err != nil && !(lherrors.IsNetwork(err) && view.Undone.Image != "") {
		return err
	}
	if err != nil {
		p.Warning(fmt.Sprintf("progress not reported: %v", err))
	}
	return p.Print(view)
}
