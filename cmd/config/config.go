// Package config provides CLI commands for configuration management.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage GridLens configuration",
		Long:  "View the effective configuration and validate review policies.",
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.PrintJSON("config show", cfg)
			}

			bold := color.New(color.Bold)
			bold.Println("Limits")
			fmt.Printf("  cell_cap:            %d\n", cfg.Limits.CellCap)
			fmt.Printf("  cycle_cap:           %d\n", cfg.Limits.CycleCap)
			fmt.Printf("  merge_expansion_cap: %d\n", cfg.Limits.MergeExpansionCap)
			fmt.Printf("  time_budget:         %s\n", cfg.Limits.TimeBudget)
			bold.Println("Risk")
			fmt.Printf("  cross_sheet_threshold: %d\n", cfg.Risk.CrossSheetThreshold)
			fmt.Printf("  allowed_constants:     %v\n", cfg.Risk.AllowedConstants)
			bold.Println("Diff")
			fmt.Printf("  key_columns: %v\n", cfg.Diff.KeyColumns)
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(filepath.Join(config.Dir(), "config.yaml"))
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <policy.yaml>",
		Short: "Validate a review policy file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := config.LoadPolicy(args[0])
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen)
			green.Printf("Policy %q is valid", policy.Name)
			fmt.Printf("  (%d allowed constants, %d key columns)\n",
				len(policy.AllowedConstants), len(policy.KeyColumns))
			return nil
		},
	}
}
