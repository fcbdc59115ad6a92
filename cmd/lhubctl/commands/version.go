package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/cmd/lhubctl/cmdutil"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func (v VersionInfo) Headers() []string {
	return []string{"Version", "Commit", "Built", "Go", "Platform"}
}

func (v VersionInfo) Rows() [][]string {
	return [][]string{{v.Version, v.Commit, v.Date, v.GoVersion, v.Platform}}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cmdutil.Printer()
		if err != nil {
			return err
		}
		return p.Print(VersionInfo{
			Version:   Version,
			Commit:    Commit,
			Date:      Date,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		})
	},
}
