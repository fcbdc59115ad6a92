// Package commands implements the lhubctl worker CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lhubctl",
	Short: "labelhub worker client",
	Long: `lhubctl labels the images of one worker shard.

Log in once with your token, then run 'lhubctl label'. Labels are kept in a
local store until you submit them, so you can stop and resume at any time.

Use "lhubctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.InitLogger()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cmdutil.Flags.ServerURL, "server", "", "Server URL (overrides the saved context)")
	pf.StringVar(&cmdutil.Flags.Token, "token", "", "Worker token (overrides the saved context)")
	pf.StringVarP(&cmdutil.Flags.Output, "output", "o", "", "Output format (table|json|yaml)")
	pf.BoolVarP(&cmdutil.Flags.Verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(shardCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(versionCmd)
}
