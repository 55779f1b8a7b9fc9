package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command
func NewStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show installed plugins and their versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			installed, err := container.Store.ListInstalled(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list installed plugins: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plugin directory: %s\n", container.Store.Root())
			if len(installed) == 0 {
				fmt.Fprintln(out, "No plugins installed.")
				return nil
			}
			fmt.Fprintln(out, renderStatus(out, installed))
			return nil
		},
	}
}
