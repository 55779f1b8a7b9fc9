package di

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	appconfig "kilometers.ai/pluginrepo/internal/application/config"
	"kilometers.ai/pluginrepo/internal/application/services"
	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	configinfra "kilometers.ai/pluginrepo/internal/infrastructure/config"
	httpinfra "kilometers.ai/pluginrepo/internal/infrastructure/http"
	"kilometers.ai/pluginrepo/internal/infrastructure/logging"
	plugininfra "kilometers.ai/pluginrepo/internal/infrastructure/plugin"
	"kilometers.ai/pluginrepo/internal/infrastructure/telemetry"
	"kilometers.ai/pluginrepo/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	Settings   configdomain.Settings
	Snapshot   configdomain.Snapshot
	ConfigPath string

	// Infrastructure
	Store     *plugininfra.FileSystemStore
	Client    *httpinfra.RepositoryClient
	Host      *plugininfra.LocalHost
	Telemetry *telemetry.Providers

	// Application services
	SettingsService *services.SettingsService
	Repository      *services.RepositoryService
	Installer       *services.Installer
	Updater         *services.UpdateService
	Cleaner         *services.Cleaner

	Logger hclog.Logger
}

// NewContainer loads configuration and wires every component
func NewContainer(ctx context.Context, opts cli.BuildOptions) (*Container, error) {
	fileLoader := configinfra.NewFileLoader(opts.ConfigPath)
	aggregator := appconfig.NewAggregator(configinfra.NewEnvLoader(), fileLoader).
		WithValidator(configinfra.NewSettingsValidator(nil))

	settings, snapshot, err := aggregator.Load(ctx, opts.Overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:  settings.LogLevel,
		Debug:  settings.Debug,
		Output: opts.LogOutput,
	})

	c := &Container{
		Settings:   settings,
		Snapshot:   snapshot,
		ConfigPath: fileLoader.Path(),
		Logger:     logger,
	}
	c.initializeComponents()

	logger.Debug("container initialized",
		"plugins_dir", c.Store.Root(),
		"api_level", settings.APILevel,
		"repositories", len(c.Repository.Repositories()),
	)
	return c, nil
}

func (c *Container) initializeComponents() {
	s := c.Settings

	// 1. Infrastructure
	c.Telemetry = telemetry.NewProviders(c.Logger, cli.Version)
	tel := c.Telemetry.Telemetry()

	c.Store = plugininfra.NewFileSystemStore(s.PluginsDir)
	c.Client = httpinfra.NewRepositoryClient(s.HTTPTimeout, cli.Version, c.Logger)
	c.Host = plugininfra.NewLocalHost(c.Logger)

	// 2. Application services
	c.SettingsService = services.NewSettingsService(s)
	c.Repository = services.NewRepositoryService(s.PrimaryRepo, c.SettingsService, c.Client, c.Logger, tel)
	c.Installer = services.NewInstaller(c.Store, c.Client, plugininfra.NewArchiveExtractor(), c.Host, c.Logger,
		services.WithTelemetry(tel),
	)
	c.Updater = services.NewUpdateService(c.Store, c.Repository, c.Installer, c.Host, c.SettingsService,
		services.UpdateServiceConfig{HostAPILevel: s.APILevel, Concurrency: s.UpdateConcurrency},
		c.Logger, tel,
	)
	c.Cleaner = services.NewCleaner(c.Store, s.APILevel, c.Logger, tel)
}

// CLI returns the view of the container the commands use
func (c *Container) CLI() *cli.CLIContainer {
	return &cli.CLIContainer{
		Settings:   c.Settings,
		Snapshot:   c.Snapshot,
		ConfigPath: c.ConfigPath,
		Store:      c.Store,
		Repository: c.Repository,
		Installer:  c.Installer,
		Updater:    c.Updater,
		Cleaner:    c.Cleaner,
		Logger:     c.Logger,
		Close:      c.Shutdown,
	}
}

// Shutdown reports counters and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Telemetry == nil {
		return nil
	}
	c.Telemetry.LogCounters(ctx)
	if err := c.Telemetry.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down telemetry: %w", err)
	}
	return nil
}

// Factory builds a container for the root command
func Factory(ctx context.Context, opts cli.BuildOptions) (*cli.CLIContainer, error) {
	c, err := NewContainer(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c.CLI(), nil
}
