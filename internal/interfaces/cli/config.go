package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command
func NewConfigCommand(app *App) *cobra.Command {
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration settings",
		Long: `Inspect the merged configuration of km-plugins.

Values come from command line flags, KM_* environment variables, the
configuration file and built-in defaults, in that order of precedence.`,
	}

	// Add subcommands
	configCmd.AddCommand(NewConfigShowCommand(app))
	configCmd.AddCommand(NewConfigPathCommand(app))

	return configCmd
}

// NewConfigShowCommand creates the show subcommand
func NewConfigShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration and where each value came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration:")
			fmt.Fprintln(out, renderConfig(out, container.Snapshot))
			return nil
		},
	}
}

// NewConfigPathCommand creates the path subcommand
func NewConfigPathCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file path: %s\n", container.ConfigPath)
			return nil
		},
	}
}
