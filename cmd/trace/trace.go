// Package trace provides the gridlens trace command.
package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/output"
	"github.com/gridlens/gridlens/internal/xlsx"
)

// NewCommand returns the trace command.
func NewCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "trace <file.xlsx> <Sheet!Cell>",
		Short: "Trace a cell back to its input drivers",
		Long: `Follows a cell's precedents transitively and reports the input cells that
ultimately drive its value.

Examples:
  gridlens trace model.xlsx Summary!D10
  gridlens trace model.xlsx Summary!D10 --depth 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			filePath, key := args[0], args[1]
			if !strings.Contains(key, "!") {
				return fmt.Errorf("expected a cell in Sheet!Cell form, got %q", key)
			}

			cfg, err := appconfig.Load()
			if err != nil {
				return fmt.Errorf("could not load configuration: %w", err)
			}

			wb, err := xlsx.ReadFile(filePath)
			if err != nil {
				return err
			}

			analyzer := engine.New(appconfig.EngineConfig(cfg, nil))
			analysis, err := analyzer.Analyze(context.Background(), wb)
			if err != nil {
				return err
			}

			if !analysis.Graph.HasNode(key) {
				return fmt.Errorf("no cell %q in %s", key, filePath)
			}

			drivers := analysis.Graph.TraceToDrivers(key, depth)

			if jsonFlag {
				return output.PrintJSON("trace", map[string]any{
					"cell":    key,
					"depth":   depth,
					"drivers": drivers,
				})
			}

			w := output.NewWriter(output.FormatText)
			// A cell with no precedents traces to itself.
			if len(analysis.Graph.PrecedentsOf(key)) == 0 {
				return w.WriteLn(fmt.Sprintf("%s has no precedents.", key))
			}
			w.WriteLn(fmt.Sprintf("Drivers of %s:", key))
			for _, d := range drivers {
				line := "  " + d
				if rec, ok := analysis.Cells[d]; ok && rec.Value != "" {
					line += "  = " + rec.Value
				}
				w.WriteLn(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum trace depth (0 = unbounded)")

	return cmd
}
