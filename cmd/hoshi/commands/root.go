// Package commands implements the hoshi CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hoshi/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	verbose     bool
	metricsAddr string
}

// NewRootCommand builds the hoshi command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "hoshi",
		Short: "Hoshi - compile grammars and parse sources across the engine boundary",
		Long: `Hoshi drives a parsing engine through its handle-based boundary.

Commands:
  generate  Compile a grammar document and optionally save a state snapshot
  parse     Parse source files with a grammar, snapshot or tree-sitter language
  kinds     List the kind table of a compiled grammar`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is ./.hoshi.yaml or $HOME/.hoshi.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /healthz, /readyz and /metrics on this address")

	rootCmd.AddCommand(newGenerateCommand(opts))
	rootCmd.AddCommand(newParseCommand(opts))
	rootCmd.AddCommand(newKindsCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hoshi %s\n", version.String())
		},
	}
}
