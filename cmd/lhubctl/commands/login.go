package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
	"github.com/marmos91/labelhub/internal/cli/credentials"
	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/internal/cli/prompt"
	"github.com/marmos91/labelhub/pkg/apiclient"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/token"
)

var (
	loginName       string
	loginStore      string
	loginCategories string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a token against the server and save it",
	Long: `Authenticate a worker token and save it as the current context.

The server URL and token are asked for when not given as flags.

Examples:
  lhubctl login --server http://localhost:8080 --token 001_002_abc

  # Pre-populate the label menu
  lhubctl login --server localhost:8080 --token 001_002_abc --categories "cat,dog,other"`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [context]",
	Short: "Forget a saved context",
	Long: `Remove a saved context, the current one by default. Unsubmitted labels stay
in the local store and come back on the next login with the same token.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginName, "name", "", "Context name (default: derived from server and token)")
	loginCmd.Flags().StringVar(&loginStore, "store", "", "Local label store directory (default: $XDG_DATA_HOME/labelhub/worker/<name>)")
	loginCmd.Flags().StringVar(&loginCategories, "categories", "", "Comma separated categories for the label menu")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	server := cmdutil.Flags.ServerURL
	if server == "" {
		if server, err = prompt.InputRequired("Server URL"); err != nil {
			return err
		}
	}
	server = cmdutil.NormalizeServerURL(server)

	tok := cmdutil.Flags.Token
	if tok == "" {
		if tok, err = prompt.InputRequired("Token"); err != nil {
			return err
		}
	}
	if err := token.Validate(tok); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := apiclient.New(server).WithToken(tok)
	if err := client.Authenticate(ctx); err != nil {
		if lherrors.IsAuth(err) {
			return fmt.Errorf("token %s is not accepted by %s", tok, server)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	name := loginName
	if name == "" {
		name = credentials.ContextName(server, tok)
	}
	localStore := loginStore
	if localStore == "" {
		if localStore, err = credentials.DefaultLocalStore(name); err != nil {
			return err
		}
	}

	if err := store.Login(name, &credentials.Context{
		ServerURL:  server,
		Token:      tok,
		LocalStore: localStore,
		LoggedInAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	if cats := prompt.ParseCategories(loginCategories); len(cats) > 0 {
		prefs := store.Preferences()
		prefs.Categories = cats
		if err := store.SetPreferences(prefs); err != nil {
			return fmt.Errorf("failed to save categories: %w", err)
		}
	}

	p, err := cmdutil.Printer()
	if err != nil {
		return err
	}
	p.Success(fmt.Sprintf("Logged in to %s as %s", server, tok))
	return output.KeyValues(p.Writer(), [][2]string{
		{"Context", name},
		{"Local store", localStore},
		{"Config", store.Path()},
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	} else if name, _, err = store.Current(); err != nil {
		return err
	}

	if err := store.Logout(name); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", name)
	return nil
}
