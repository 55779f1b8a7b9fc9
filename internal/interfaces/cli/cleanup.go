package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanupCommand creates the cleanup command
func NewCleanupCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete disabled and outdated plugin versions",
		Long: `Remove every disabled version directory and every version built for an API
level more than one below the host's. Plugin directories left empty are
removed too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			result := container.Cleaner.Cleanup(cmd.Context())

			out := cmd.OutOrStdout()
			for _, r := range result.Removed {
				fmt.Fprintf(out, "Removed %s %s (%s)\n", r.InternalName, r.Version, r.Reason)
			}
			for _, p := range result.RemovedPlugins {
				fmt.Fprintf(out, "Removed empty plugin directory %s\n", p)
			}
			fmt.Fprintf(out, "Cleanup finished: %d versions removed, %d errors\n", len(result.Removed), result.Errors)

			if result.Errors > 0 {
				return fmt.Errorf("cleanup finished with %d errors", result.Errors)
			}
			return nil
		},
	}
}
