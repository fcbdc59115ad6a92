// Package commands implements the lhub server and administration CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhub/commands/config"
	"github.com/marmos91/labelhub/internal/cli/output"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lhub",
	Short: "labelhub - crowd-sourced image labeling coordinator",
	Long: `labelhub splits an image corpus into one shard per worker token, serves
shards and images to workers, tracks their progress and merges the labels
they submit.

A typical run:
  lhub config init
  lhub tokens generate -g 3 -m 4
  lhub distribute
  lhub start
  lhub merge
  lhub export --out ./sorted

Use "lhub [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/labelhub/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the --config flag.
func GetConfigFile() string {
	return cfgFile
}

// printer returns a stdout printer for --output.
func printer() (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.StdoutPrinter(format), nil
}
