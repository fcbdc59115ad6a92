package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/pkg/config"
	"github.com/marmos91/labelhub/pkg/token"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the labelhub configuration file.

Checks for syntax errors, missing required fields and invalid values, then
warns about files the server will need but cannot find.

Examples:
  lhub config validate
  lhub config validate --config /etc/labelhub/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if f, err := token.ReadFile(cfg.Tokens.File); err != nil {
		warnings = append(warnings, fmt.Sprintf("token file unusable (%v): run 'lhub tokens generate'", err))
	} else if len(f.Tokens) == 0 {
		warnings = append(warnings, "token file lists no tokens")
	}
	if cfg.Origin.Type == config.OriginTypeFS {
		if info, err := os.Stat(cfg.Origin.FS.Path); err != nil || !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("image directory %q does not exist", cfg.Origin.FS.Path))
		}
	}
	if cfg.Store.Type == config.StoreTypeMemory {
		warnings = append(warnings, "memory store selected: progress and labels are lost on restart")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Store:       %s\n", cfg.Store.Type)
	_, _ = fmt.Fprintf(out, "  Origin:      %s\n", cfg.Origin.Type)
	_, _ = fmt.Fprintf(out, "  Token file:  %s\n", cfg.Tokens.File)
	_, _ = fmt.Fprintf(out, "  API port:    %d\n", cfg.Server.Port)
	_, _ = fmt.Fprintf(out, "  Log level:   %s\n", cfg.Logging.Level)
	return nil
}
