package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

// NewRepoCommand creates the repository command group
func NewRepoCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Inspect and refresh plugin repositories",
		Long: `Refresh the merged catalog of the primary repository and every enabled
third-party repository, or list the plugins it offers.`,
		Example: `  # Refresh all repositories
  km-plugins repo refresh

  # Refresh with a live progress view
  km-plugins repo refresh --watch

  # List the merged catalog
  km-plugins repo list`,
	}

	cmd.AddCommand(newRepoRefreshCommand(app))
	cmd.AddCommand(newRepoListCommand(app))

	return cmd
}

func newRepoRefreshCommand(app *App) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every repository manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.Container()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			catalog, err := refreshCatalog(cmd.Context(), container, watch, out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Catalog refreshed: %d plugins from %d repositories\n",
				len(catalog.Plugins), len(container.Repository.Repositories()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Show refresh progress")
	return cmd
}

func newRepoListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the plugins of the merged catalog",
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

			if len(catalog.Plugins) == 0 {
				fmt.Fprintln(out, "No plugins published.")
				return nil
			}
			fmt.Fprintln(out, renderCatalog(out, catalog.Plugins, container.Settings.APILevel))
			return nil
		},
	}
}

// refreshCatalog starts a refresh and blocks until it finishes. It fails
// unless the refresh ends with a usable catalog.
func refreshCatalog(ctx context.Context, container *CLIContainer, watch bool, out io.Writer) (*plugindomain.Catalog, error) {
	task := container.Repository.Refresh(ctx)

	if watch {
		if _, err := watchRefresh(container.Repository, out); err != nil {
			return nil, err
		}
	}

	catalog, err := task.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository refresh did not finish: %w", err)
	}
	if !catalog.Available() {
		state := plugindomain.RefreshUnknown
		if catalog != nil {
			state = catalog.State
		}
		return nil, fmt.Errorf("repository refresh %s", state)
	}
	return catalog, nil
}
