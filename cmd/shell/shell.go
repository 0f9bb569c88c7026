// Package shell provides the gridlens interactive shell command.
package shell

import (
	"fmt"

	"github.com/spf13/cobra"

	appconfig "github.com/gridlens/gridlens/internal/config"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/shell"
)

// NewCommand returns the shell command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive model exploration shell",
		Long: `Starts a REPL for exploring an analyzed workbook: load a model, then walk
its risks, precedents, dependents and driver traces without re-analyzing on
every question.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return fmt.Errorf("could not load configuration: %w", err)
			}

			session, err := shell.NewSession(engine.New(appconfig.EngineConfig(cfg, nil)))
			if err != nil {
				return err
			}
			return session.Run(cmd.Context())
		},
	}
}
