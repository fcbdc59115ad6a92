package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default labelhub configuration file.

By default the file is created at $XDG_CONFIG_HOME/labelhub/config.yaml.
Use --config to choose another path.

Examples:
  lhub config init
  lhub config init --config /etc/labelhub/config.yaml
  lhub config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Point origin.fs.path (or origin.s3) at your images")
	_, _ = fmt.Fprintln(out, "  2. Generate tokens:      lhub tokens generate -g <groups> -m <members>")
	_, _ = fmt.Fprintln(out, "  3. Distribute shards:    lhub distribute")
	_, _ = fmt.Fprintln(out, "  4. Start the server:     lhub start")
	return nil
}
