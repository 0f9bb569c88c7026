// Package update provides the gridlens update command.
package update

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gridlens/gridlens/cmd/version"
	"github.com/gridlens/gridlens/internal/output"
	"github.com/gridlens/gridlens/internal/update"
)

// NewCommand returns the update command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for a newer gridlens release",
	}
	cmd.AddCommand(newCheckCommand())
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check GitHub for the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			release, err := update.CheckLatest(version.Version)
			if err != nil {
				if jsonFlag {
					return output.PrintJSONError("update check", err, output.ExitSystemError)
				}
				return err
			}

			if jsonFlag {
				return output.PrintJSON("update check", map[string]interface{}{
					"current":         version.Version,
					"updateAvailable": release != nil,
					"latest":          release,
				})
			}

			if release == nil {
				color.New(color.FgGreen).Printf("gridlens %s is up to date.\n", version.Version)
				return nil
			}

			fmt.Print(update.FormatUpdateNotice(version.Version, release))
			return nil
		},
	}
}
