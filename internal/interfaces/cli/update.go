package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the update command
func NewUpdateCommand(app *App) *cobra.Command {
	var (
		dryRun bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update installed plugins",
		Long: `Refresh the repositories, then update every enabled plugin that has a
newer build on its channel. Plugins installed from the testing channel stay on
it while testing is allowed.

With --dry-run, the plugins that would be updated are reported and nothing on
disk changes.`,
		Example: `  # Update all plugins
  km-plugins update

  # Show what would be updated
  km-plugins update --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := refreshCatalog(cmd.Context(), container, watch, out); err != nil {
				return err
			}

			ok, records := container.Updater.UpdateAll(cmd.Context(), dryRun)

			if len(records) == 0 && ok {
				fmt.Fprintln(out, "All plugins are up to date.")
				return nil
			}

			NewConsoleNotifier(out).NotifyUpdates(UpdateHeader, records)
			if !ok {
				return errors.New("one or more plugins failed to update")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report updates without installing them")
	cmd.Flags().BoolVar(&watch, "watch", false, "Show repository refresh progress")
	return cmd
}
