package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	"github.com/marmos91/labelhub/internal/cli/credentials"
	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/internal/cli/prompt"
	"github.com/marmos91/labelhub/internal/logger"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/session"
)

var (
	labelCategories string
	labelPreview    string
	labelViewer     string
	labelPrefetch   int
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Label your shard interactively",
	Long: `Walk your shard image by image and pick a category for each.

The current image is written to a preview file, and --viewer opens it with
an external program. Labels are stored locally after every choice; pick
"Submit pending" or run 'lhubctl submit' to send them to the server.

Examples:
  lhubctl label --categories "cat,dog"
  lhubctl label --viewer xdg-open
  lhubctl label --prefetch 4`,
	RunE: runLabel,
}

func init() {
	labelCmd.Flags().StringVar(&labelCategories, "categories", "", "Comma separated categories (default: saved preference)")
	labelCmd.Flags().StringVar(&labelPreview, "preview", "", "Preview file path without extension (default: $TMPDIR/lhubctl-preview)")
	labelCmd.Flags().StringVar(&labelViewer, "viewer", "", "Program started with the preview path for every image")
	labelCmd.Flags().IntVar(&labelPrefetch, "prefetch", 0, "Images to prefetch (default: saved preference or 2)")
}

func runLabel(cmd *cobra.Command, args []string) error {
	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	target, err := cmdutil.Resolve()
	if err != nil {
		return err
	}
	creds, err := credentials.NewStore()
	if err != nil {
		return err
	}
	prefs := creds.Preferences()

	categories := prompt.ParseCategories(labelCategories)
	if len(categories) == 0 {
		categories = prefs.Categories
	}
	capacity := labelPrefetch
	if capacity <= 0 {
		capacity = prefs.CacheCapacity
	}

	local, closeLocal, err := target.OpenLocal()
	if err != nil {
		return err
	}
	defer closeLocal()

	ctx := logger.ContextWithToken(context.Background(), target.Context.Token)
	sess, err := session.Open(ctx, target.Client(), local, target.Context.Token,
		session.WithCacheCapacity(capacity))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	preview := labelPreview
	if preview == "" {
		preview = filepath.Join(os.TempDir(), "lhubctl-preview")
	}

	l := &labeler{
		p:          p,
		sess:       sess,
		categories: categories,
		preview:    preview,
	}
	if err := l.run(ctx); err != nil {
		return err
	}

	if added := l.newCategories(prefs.Categories); len(added) > 0 {
		prefs.Categories = append(prefs.Categories, added...)
		if err := creds.SetPreferences(prefs); err != nil {
			logger.Warn("Failed to save categories", logger.Err(err))
		}
	}
	return nil
}

// labeler drives one interactive labeling run.
type labeler struct {
	p          *output.Printer
	sess       *session.Session
	categories []string
	preview    string
	lastPath   string
}

func (l *labeler) run(ctx context.Context) error {
	for {
		img, err := l.sess.Current(ctx)
		if errors.Is(err, session.ErrCompleted) {
			return l.finish(ctx)
		}
		if err != nil {
			return fmt.Errorf("cannot load image: %w", err)
		}

		if err := l.show(img); err != nil {
			l.p.Warning(fmt.Sprintf("preview unavailable: %v", err))
		}

		pending := l.sess.Pending().Len()
		label := fmt.Sprintf("%s %s (%d/%d)", output.Bar(img.Index, img.Total), img.Name, img.Index+1, img.Total)
		choice, err := prompt.SelectCategory(label, l.categories, prompt.MenuOptions{
			AllowUndo:   pending > 0 || l.sess.Submitted() > 0,
			AllowSubmit: pending > 0,
		})
		if prompt.IsAborted(err) {
			return l.quit()
		}
		if err != nil {
			return err
		}

		switch choice.Action {
		case prompt.ActionClassify:
			l.remember(choice.Category)
			_, err = l.sess.Classify(ctx, choice.Category)
		case prompt.ActionUndo:
			var ev labels.Event
			ev, err = l.undo(ctx, pending)
			if ev.Image != "" {
				l.p.Printf("Undid %s: %s\n", ev.Image, ev.Category)
			}
		case prompt.ActionSubmit:
			err = l.submit(ctx)
		case prompt.ActionQuit:
			return l.quit()
		}

		switch {
		case err == nil:
		case lherrors.IsNetwork(err):
			// Local state is kept; the next call retries.
			l.p.Warning(fmt.Sprintf("server unreachable, continuing offline: %v", err))
		case lherrors.IsInputError(err):
			l.p.Error(err.Error())
		default:
			return err
		}
	}
}

// show writes the image to the preview file and starts the viewer.
func (l *labeler) show(img *session.Image) error {
	path := l.preview + previewExt(img.Data)
	if l.lastPath != "" && l.lastPath != path {
		_ = os.Remove(l.lastPath)
	}
	l.lastPath = path
	if err := os.WriteFile(path, img.Data, 0600); err != nil {
		return err
	}
	l.p.Printf("Preview: %s (%d KB)\n", path, (len(img.Data)+1023)/1024)

	if labelViewer == "" {
		return nil
	}
	fields := strings.Fields(labelViewer)
	viewer := exec.Command(fields[0], append(fields[1:], path)...)
	if err := viewer.Start(); err != nil {
		return fmt.Errorf("start viewer: %w", err)
	}
	go func() { _ = viewer.Wait() }()
	return nil
}

func previewExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	}
	return ".img"
}

func (l *labeler) remember(category string) {
	if !slices.Contains(l.categories, category) {
		l.categories = append(l.categories, category)
	}
}

// newCategories returns the categories typed during the run that saved
// lists do not have yet.
func (l *labeler) newCategories(saved []string) []string {
	var added []string
	for _, c := range l.categories {
		if !slices.Contains(saved, c) {
			added = append(added, c)
		}
	}
	return added
}

// undo removes the last local label, or the last submitted one when
// nothing is pending locally.
func (l *labeler) undo(ctx context.Context, pending int) (labels.Event, error) {
	if pending > 0 {
		return l.sess.Undo(ctx)
	}
	res, err := l.sess.UndoRemote(ctx)
	if res == nil {
		return labels.Event{}, err
	}
	return res.Undone, err
}

func (l *labeler) submit(ctx context.Context) error {
	for !l.sess.Pending().IsEmpty() {
		res, err := l.sess.Submit(ctx)
		if err != nil {
			return err
		}
		if res.Duplicate {
			l.p.Success(fmt.Sprintf("Already submitted (key %s)", res.Key))
		} else {
			l.p.Success(fmt.Sprintf("Submitted %d labels", res.Accepted))
		}
	}
	return nil
}

func (l *labeler) finish(ctx context.Context) error {
	if l.lastPath != "" {
		_ = os.Remove(l.lastPath)
	}
	l.p.Success("Every image of the shard is labeled.")
	if l.sess.Pending().IsEmpty() {
		return nil
	}
	ok, err := prompt.Confirm(fmt.Sprintf("Submit %d pending labels now?", l.sess.Pending().Len()), true)
	if err != nil || !ok {
		return l.quit()
	}
	if err := l.submit(ctx); err != nil {
		l.p.Error(err.Error())
		return l.quit()
	}
	return nil
}

func (l *labeler) quit() error {
	if n := l.sess.Pending().Len(); n > 0 {
		l.p.Warning(fmt.Sprintf("%d labels are stored locally and not submitted yet; run 'lhubctl submit'", n))
	}
	return nil
}
