package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

// NewInstallCommand creates the install command
func NewInstallCommand(app *App) *cobra.Command {
	var (
		testing  bool
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "install <internal-name>",
		Short: "Install a plugin from the catalog",
		Long: `Download a plugin from the first repository that publishes it and place it
in the plugin directory. The plugin is loaded unless --disabled is given.`,
		Example: `  # Install the stable build
  km-plugins install SamplePlugin

  # Install the testing build
  km-plugins install SamplePlugin --testing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			catalog, err := refreshCatalog(cmd.Context(), container, false, out)
			if err != nil {
				return err
			}

			def := catalog.Find(args[0])
			if def == nil {
				return fmt.Errorf("plugin %q is not published by any repository", args[0])
			}
			if def.APILevel != container.Settings.APILevel {
				return fmt.Errorf("plugin %q targets API level %d, host is %d", def.InternalName, def.APILevel, container.Settings.APILevel)
			}

			channel := plugindomain.ChannelStable
			if testing {
				channel = plugindomain.ChannelTesting
			}

			ok := container.Installer.Install(cmd.Context(), *def, plugindomain.InstallOptions{
				EnableAfterInstall: !disabled,
				Channel:            channel,
			})
			if !ok {
				return fmt.Errorf("failed to install %s", def.Name)
			}

			fmt.Fprintf(out, "Installed %s v%s\n", def.Name, def.VersionFor(channel))
			return nil
		},
	}

	cmd.Flags().BoolVar(&testing, "testing", false, "Install the testing build")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Install without loading the plugin")
	return cmd
}
