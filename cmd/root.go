// Package cmd contains all CLI commands for the gridlens binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gridlens/gridlens/cmd/analyze"
	"github.com/gridlens/gridlens/cmd/completion"
	cmdconfig "github.com/gridlens/gridlens/cmd/config"
	"github.com/gridlens/gridlens/cmd/diff"
	cmdshell "github.com/gridlens/gridlens/cmd/shell"
	"github.com/gridlens/gridlens/cmd/trace"
	cmdupdate "github.com/gridlens/gridlens/cmd/update"
	"github.com/gridlens/gridlens/cmd/version"
	cmdwatch "github.com/gridlens/gridlens/cmd/watch"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridlens",
		Short: "Structural risk analysis for spreadsheet financial models",
		Long: `GridLens — X-ray vision for spreadsheet models.

Builds the dependency graph of a workbook, detects structural risks (hidden
hardcodes, circular references, merged-cell traps, cross-sheet spaghetti),
scores model health, and diffs model versions by business key instead of
row position.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	// Register subcommands
	rootCmd.AddCommand(analyze.NewCommand())
	rootCmd.AddCommand(diff.NewCommand())
	rootCmd.AddCommand(trace.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdshell.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(cmdupdate.NewCommand())
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
