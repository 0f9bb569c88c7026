// Package diff provides the gridlens diff command for comparing model versions.
package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/diff"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/model"
	"github.com/gridlens/gridlens/internal/output"
	"github.com/gridlens/gridlens/internal/progress"
	"github.com/gridlens/gridlens/internal/xlsx"
)

// NewCommand returns the diff command.
func NewCommand() *cobra.Command {
	var (
		keyColumns []string
		sheet      string
		policyPath string
	)

	cmd := &cobra.Command{
		Use:   "diff <old.xlsx> <new.xlsx>",
		Short: "Compare two versions of a spreadsheet model",
		Long: `Matches rows across two versions by a composite business key and classifies
every difference: formula edits (logic changes), value edits (input updates),
risks resolved or introduced, and structural changes. Rows are matched by key,
not position, so inserting or reordering rows does not corrupt the comparison.

Examples:
  gridlens diff budget-v1.xlsx budget-v2.xlsx
  gridlens diff budget-v1.xlsx budget-v2.xlsx --keys A,B --sheet Forecast
  gridlens diff budget-v1.xlsx budget-v2.xlsx --policy review.yaml --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			for _, p := range args {
				if !strings.HasSuffix(strings.ToLower(p), ".xlsx") {
					return fmt.Errorf("expected a .xlsx file, got %q", p)
				}
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

			keys := keyColumns
			if len(keys) == 0 {
				keys = appconfig.KeyColumns(cfg, policy)
			}

			analyzer := engine.New(appconfig.EngineConfig(cfg, policy))
			ctx := cmd.Context()

			bar := progress.NewBar("Analyzing", 2)
			if jsonFlag {
				bar.Enabled = false
			}

			oldModel, err := analyzeFile(ctx, analyzer, args[0])
			if err != nil {
				return err
			}
			bar.Increment(args[0])
			newModel, err := analyzeFile(ctx, analyzer, args[1])
			if err != nil {
				return err
			}
			bar.Increment(args[1])
			bar.Finish(fmt.Sprintf("Analyzed %s and %s", args[0], args[1]))

			target := sheet
			if target == "" {
				if len(oldModel.Sheets) == 0 {
					return fmt.Errorf("%s has no sheets to compare", args[0])
				}
				target = oldModel.Sheets[0]
			}

			result := diff.Compare(oldModel, newModel, target, keys)

			if jsonFlag {
				return output.PrintJSON("diff", result)
			}

			w := output.NewWriter(output.FormatText)
			return w.WriteText(output.RenderDiff(result))
		},
	}

	cmd.Flags().StringSliceVar(&keyColumns, "keys", nil, "Key columns identifying a row (e.g. A,B)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to compare (default: first sheet of the old model)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Per-workbook policy YAML (allowed constants, key columns)")

	return cmd
}

func analyzeFile(ctx context.Context, analyzer *engine.Analyzer, path string) (*model.Analysis, error) {
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(ctx, wb)
}
