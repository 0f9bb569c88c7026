// Package analyze provides the gridlens analyze command.
package analyze

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/model"
	"github.com/gridlens/gridlens/internal/output"
	"github.com/gridlens/gridlens/internal/progress"
	"github.com/gridlens/gridlens/internal/xlsx"
)

// NewCommand returns the analyze command.
func NewCommand() *cobra.Command {
	var (
		fast       bool
		policyPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.xlsx>",
		Short: "Analyze a spreadsheet model for structural risks",
		Long: `Builds the full dependency graph of a spreadsheet model and runs the risk
detectors: hardcoded constants inside formulas, circular references, formulas
crossing merged regions, and excessive cross-sheet coupling.

Examples:
  gridlens analyze model.xlsx
  gridlens analyze model.xlsx --fast
  gridlens analyze model.xlsx --policy review.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			filePath := args[0]
			if !isWorkbook(filePath) {
				return fmt.Errorf("expected a .xlsx file, got %q", filePath)
			}

			cfg, err := appconfig.Load()
			if err != nil {
				return fmt.Errorf("could not load configuration: %w", err)
			}

			var policy *appconfig.Policy
			if policyPath != "" {
				policy, err = appconfig.LoadPolicy(policyPath)
				if err != nil {
					return err
				}
			}

			spin := progress.NewSpinner("Reading " + filePath)
			if jsonFlag {
				spin.Enabled = false
			}
			spin.Start()

			wb, err := xlsx.ReadFile(filePath)
			if err != nil {
				spin.Stop()
				return err
			}

			analyzer := engine.New(appconfig.EngineConfig(cfg, policy))
			ctx := cmd.Context()

			spin.Update("Analyzing " + filePath)
			var analysis *model.Analysis
			if fast {
				analysis, err = analyzer.QuickScan(ctx, wb)
			} else {
				analysis, err = analyzer.Analyze(ctx, wb)
			}
			spin.Stop()
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.PrintJSON("analyze", analysis)
			}

			report := output.RenderAnalysis(analysis)
			if output.ShouldPage(report, output.DefaultTermHeight) {
				return output.Page(report)
			}
			w := output.NewWriter(output.FormatText)
			return w.WriteText(report)
		},
	}

	cmd.Flags().BoolVar(&fast, "fast", false, "Skip graph construction, run hardcode detection only")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Per-workbook policy YAML (allowed constants, key columns)")

	return cmd
}

func isWorkbook(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}
