package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/pkg/config"
	"github.com/marmos91/labelhub/pkg/token"
)

var (
	tokenGroups  int
	tokenMembers int
	tokenOut     string
	tokenForce   bool
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage worker tokens",
}

var tokensGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the worker token file",
	Long: `Generate groups x members worker tokens of the form GGG_MMM_xyz and write
them to the token file, one per line after a header line.

Examples:
  # 3 groups of 4 workers into the configured token file
  lhub tokens generate -g 3 -m 4

  # Write somewhere else, replacing an existing file
  lhub tokens generate -g 1 -m 10 --out ./tokens.txt --force`,
	RunE: runTokensGenerate,
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tokens in the token file",
	RunE:  runTokensList,
}

func init() {
	tokensGenerateCmd.Flags().IntVarP(&tokenGroups, "groups", "g", 1, "Number of groups")
	tokensGenerateCmd.Flags().IntVarP(&tokenMembers, "members", "m", 1, "Workers per group")
	tokensGenerateCmd.Flags().StringVar(&tokenOut, "out", "", "Token file (default: tokens.file from the configuration)")
	tokensGenerateCmd.Flags().BoolVarP(&tokenForce, "force", "f", false, "Overwrite an existing token file")

	tokensListCmd.Flags().StringVar(&tokenOut, "file", "", "Token file (default: tokens.file from the configuration)")

	tokensCmd.AddCommand(tokensGenerateCmd)
	tokensCmd.AddCommand(tokensListCmd)
}

// tokenFilePath returns the flag value or the configured token file.
func tokenFilePath() (string, error) {
	if tokenOut != "" {
		return tokenOut, nil
	}
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", err
	}
	return cfg.Tokens.File, nil
}

// TokenList is the printable content of a token file.
type TokenList struct {
	File    string   `json:"file" yaml:"file"`
	Groups  int      `json:"groups" yaml:"groups"`
	Members int      `json:"members" yaml:"members"`
	Tokens  []string `json:"tokens" yaml:"tokens"`
}

func (l TokenList) Headers() []string { return []string{"#", "Token"} }

func (l TokenList) Rows() [][]string {
	rows := make([][]string, len(l.Tokens))
	for i, t := range l.Tokens {
		rows[i] = []string{fmt.Sprintf("%d", i+1), t}
	}
	return rows
}

func runTokensGenerate(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	path, err := tokenFilePath()
	if err != nil {
		return err
	}
	if !tokenForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("token file %s already exists (use --force to replace it)", path)
		}
	}

	tokens, err := token.NewAllocator().Generate(tokenGroups, tokenMembers)
	if err != nil {
		return err
	}
	if err := token.WriteFile(path, tokenGroups, tokenMembers, tokens); err != nil {
		return err
	}

	if !p.Structured() {
		p.Success(fmt.Sprintf("Wrote %d tokens to %s", len(tokens), path))
	}
	return p.Print(TokenList{File: path, Groups: tokenGroups, Members: tokenMembers, Tokens: tokens})
}

func runTokensList(cmd *cobra.Command, args []string) error {
	p, err := printer()
	if err != nil {
		return err
	}
	path, err := tokenFilePath()
	if err != nil {
		return err
	}
	f, err := token.ReadFile(path)
	if err != nil {
		return err
	}
	return p.Print(TokenList{File: path, Groups: f.Groups, Members: f.Members, Tokens: f.Tokens})
}

var _ output.TableRenderer = TokenList{}
