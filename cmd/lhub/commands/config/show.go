package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and LABELHUB_* overrides are
applied. Table output is rendered as YAML.

Examples:
  lhub config show
  lhub config show -o json`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == output.FormatJSON {
		return output.EncodeJSON(cmd.OutOrStdout(), cfg)
	}
	return output.EncodeYAML(cmd.OutOrStdout(), cfg)
}
