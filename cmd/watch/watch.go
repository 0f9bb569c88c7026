// Package watch provides the gridlens watch command.
package watch

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	appconfig "github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/watch"
	"github.com/gridlens/gridlens/internal/xlsx"
)

// NewCommand returns the watch command.
func NewCommand() *cobra.Command {
	var (
		recursive bool
		debounce  int
	)

	cmd := &cobra.Command{
		Use:   "watch <path>...",
		Short: "Re-analyze spreadsheet models as they change",
		Long: `Watches workbook files or directories and re-runs the analysis whenever a
model is saved, printing the new health score and risk counts.

Examples:
  gridlens watch models/
  gridlens watch budget.xlsx --debounce 1000
  gridlens watch models/ --recursive`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return fmt.Errorf("could not load configuration: %w", err)
			}

			analyzer := engine.New(appconfig.EngineConfig(cfg, nil))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := watch.New(watch.Config{
				Paths:     args,
				Recursive: recursive,
				Debounce:  debounce,
			}, func(path string) error {
				wb, err := xlsx.ReadFile(path)
				if err != nil {
					return err
				}
				analysis, err := analyzer.Analyze(ctx, wb)
				if err != nil {
					return err
				}
				counts := analysis.RiskCounts()
				bold := color.New(color.Bold)
				bold.Printf("%s: score %d/100", path, analysis.HealthScore)
				fmt.Printf("  (critical %d, high %d, medium %d, low %d)\n",
					counts.Critical, counts.High, counts.Medium, counts.Low)
				return nil
			})
			if err != nil {
				return err
			}

			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "Watch directories recursively")
	cmd.Flags().IntVar(&debounce, "debounce", 500, "Milliseconds to wait after a change before re-analyzing")

	return cmd
}
