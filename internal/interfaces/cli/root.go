package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"kilometers.ai/pluginrepo/internal/application/services"
	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	Settings   configdomain.Settings
	Snapshot   configdomain.Snapshot
	ConfigPath string

	Store      pluginports.VersionStore
	Repository *services.RepositoryService
	Installer  pluginports.PluginInstaller
	Updater    *services.UpdateService
	Cleaner    *services.Cleaner

	Logger hclog.Logger
	// Close flushes telemetry; it may be nil
	Close func(ctx context.Context) error
}

// BuildOptions are the inputs the root command collects before building a container
type BuildOptions struct {
	ConfigPath string
	Overrides  map[string]interface{}
	LogOutput  io.Writer
}

// ContainerFactory builds the dependencies once flags are parsed
type ContainerFactory func(ctx context.Context, opts BuildOptions) (*CLIContainer, error)

// App carries the container from the root command to its subcommands
type App struct {
	factory   ContainerFactory
	container *CLIContainer
}

// Container returns the dependencies built in PersistentPreRunE
func (a *App) Container() (*CLIContainer, error) {
	if a.container == nil {
		return nil, errors.New("application not initialized")
	}
	return a.container, nil
}

// NewRootCommand RootCommand represents the base command when called without any subcommands
func NewRootCommand(factory ContainerFactory) *cobra.Command {
	app := &App{factory: factory}

	var rootCmd = &cobra.Command{
		Use:   "km-plugins",
		Short: "Plugin repository manager - install, update and clean up plugins",
		Long: `km-plugins manages plugins installed from one or more plugin repositories.

It merges the manifests of the primary repository and any configured third-party
repositories into one catalog, updates installed plugins to newer stable or
testing builds, and removes disabled or outdated versions from disk.`,
		Version:      Version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := collectOverrides(cmd)
			if err != nil {
				return fmt.Errorf("failed to apply configuration overrides: %w", err)
			}
			configPath, _ := cmd.Flags().GetString("config")

			container, err := app.factory(cmd.Context(), BuildOptions{
				ConfigPath: configPath,
				Overrides:  overrides,
				LogOutput:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			app.container = container
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.container == nil || app.container.Close == nil {
				return nil
			}
			return app.container.Close(cmd.Context())
		},
	}

	// Set custom version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	// Add persistent flags
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("config", "", "Config file path (default is $KM_CONFIG_PATH or ~/.config/kilometers/plugins.yaml)")
	flags.String("plugins-dir", "", "Directory holding installed plugins")
	flags.String("repo", "", "Primary repository manifest URL")
	flags.StringSlice("third-repo", nil, "Additional repository manifest URL (repeatable)")
	flags.Bool("allow-testing", false, "Allow updates from the testing channel")
	flags.Int("api-level", 0, "API level of the host")
	flags.Int("concurrency", 0, "Plugins processed in parallel during updates")

	// Add subcommands
	rootCmd.AddCommand(NewRepoCommand(app))
	rootCmd.AddCommand(NewUpdateCommand(app))
	rootCmd.AddCommand(NewInstallCommand(app))
	rootCmd.AddCommand(NewCleanupCommand(app))
	rootCmd.AddCommand(NewStatusCommand(app))
	rootCmd.AddCommand(NewConfigCommand(app))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// collectOverrides turns explicitly set flags into priority 1 configuration entries
func collectOverrides(cmd *cobra.Command) (map[string]interface{}, error) {
	overrides := map[string]interface{}{}
	flags := cmd.Flags()

	stringFlag := func(flag, key string) error {
		if !flags.Changed(flag) {
			return nil
		}
		v, err := flags.GetString(flag)
		if err != nil {
			return err
		}
		overrides[key] = v
		return nil
	}
	boolFlag := func(flag, key string) error {
		if !flags.Changed(flag) {
			return nil
		}
		v, err := flags.GetBool(flag)
		if err != nil {
			return err
		}
		overrides[key] = v
		return nil
	}
	intFlag := func(flag, key string) error {
		if !flags.Changed(flag) {
			return nil
		}
		v, err := flags.GetInt(flag)
		if err != nil {
			return err
		}
		overrides[key] = v
		return nil
	}

	err := errors.Join(
		boolFlag("debug", configdomain.KeyDebug),
		stringFlag("log-level", configdomain.KeyLogLevel),
		stringFlag("plugins-dir", configdomain.KeyPluginsDir),
		stringFlag("repo", configdomain.KeyPrimaryRepo),
		boolFlag("allow-testing", configdomain.KeyAllowTesting),
		intFlag("api-level", configdomain.KeyAPILevel),
		intFlag("concurrency", configdomain.KeyUpdateConcurrency),
	)
	if err != nil {
		return nil, err
	}

	if flags.Changed("third-repo") {
		urls, err := flags.GetStringSlice("third-repo")
		if err != nil {
			return nil, err
		}
		repos := make([]configdomain.Repository, 0, len(urls))
		for _, u := range urls {
			repos = append(repos, configdomain.Repository{URL: u, Enabled: true})
		}
		overrides[configdomain.KeyThirdRepos] = repos
	}

	return overrides, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, factory ContainerFactory) {
	rootCmd := NewRootCommand(factory)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
