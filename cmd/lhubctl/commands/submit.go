package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	"github.com/marmos91/labelhub/pkg/session"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send locally stored labels to the server",
	Long: `Submit every label stored locally since the last submission.

A failed submission keeps the batch and its idempotency key, so running the
command again is safe: the server applies a batch at most once. Labels made
after a failed attempt are sent as a separate batch.

Examples:
  lhubctl submit`,
	RunE: runSubmit,
}

// SubmitView reports a submission.
type SubmitView struct {
	Token     string `json:"token" yaml:"token"`
	Key       string `json:"key" yaml:"key"`
	Accepted  int    `json:"accepted" yaml:"accepted"`
	Total     int    `json:"total" yaml:"total"`
	Duplicate bool   `json:"duplicate" yaml:"duplicate"`
}

func (v SubmitView) Headers() []string {
	return []string{"Token", "Accepted", "Server total", "Replay", "Key"}
}

func (v SubmitView) Rows() [][]string {
	replay := "no"
	if v.Duplicate {
		replay = "yes"
	}
	return [][]string{{v.Token, fmt.Sprintf("%d", v.Accepted), fmt.Sprintf("%d", v.Total), replay, v.Key}}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	target, err := cmdutil.Resolve()
	if err != nil {
		return err
	}

	local, closeLocal, err := target.OpenLocal()
	if err != nil {
		return err
	}
	defer closeLocal()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := session.Open(ctx, target.Client(), local, target.Context.Token, session.WithoutPrefetch())
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	// A batch frozen by an earlier failed attempt goes first, on its own key.
	view := SubmitView{Token: target.Context.Token}
	for !sess.Pending().IsEmpty() {
		res, err := sess.Submit(ctx)
		if err != nil {
			if view.Key != "" {
				p.Warning(fmt.Sprintf("%d labels submitted before the failure", view.Accepted))
			}
			return err
		}
		view.Key = res.Key
		view.Accepted += res.Accepted
		view.Total = res.Total
		view.Duplicate = view.Duplicate || res.Duplicate
	}
	if view.Key == "" {
		_, err = sess.Submit(ctx) // reports there is nothing to submit
		return err
	}

	if !p.Structured() {
		p.Success(fmt.Sprintf("Submitted %d labels", view.Accepted))
	}
	return p.Print(view)
}
