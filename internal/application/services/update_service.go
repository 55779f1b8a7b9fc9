package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
	"kilometers.ai/pluginrepo/internal/infrastructure/telemetry"
)

// UpdateService walks every installed plugin and installs the versions the
// resolver asks for
type UpdateService struct {
	store       pluginports.VersionStore
	catalog     pluginports.CatalogSource
	installer   pluginports.PluginInstaller
	unloader    pluginports.PluginUnloader
	settings    pluginports.SettingsProvider
	apiLevel    int
	concurrency int
	logger      hclog.Logger
	telemetry   *telemetry.Telemetry
}

// UpdateServiceConfig holds the non-port inputs of an UpdateService
type UpdateServiceConfig struct {
	HostAPILevel int
	// Concurrency bounds how many plugin directories are processed at once
	Concurrency int
}

// NewUpdateService creates the update orchestrator
func NewUpdateService(
	store pluginports.VersionStore,
	catalog pluginports.CatalogSource,
	installer pluginports.PluginInstaller,
	unloader pluginports.PluginUnloader,
	settings pluginports.SettingsProvider,
	cfg UpdateServiceConfig,
	logger hclog.Logger,
	tel *telemetry.Telemetry,
) *UpdateService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &UpdateService{
		store:       store,
		catalog:     catalog,
		installer:   installer,
		unloader:    unloader,
		settings:    settings,
		apiLevel:    cfg.HostAPILevel,
		concurrency: cfg.Concurrency,
		logger:      logger.Named("updater"),
		telemetry:   tel,
	}
}

// outcome is the result of processing one plugin directory
type outcome struct {
	record *plugindomain.UpdateRecord
	failed bool
}

// UpdateAll runs one update pass. The returned bool is false when any install
// failed or the installed plugins could not be listed; skipped plugins do not
// count as failures. Records are ordered like the plugin directories.
func (s *UpdateService) UpdateAll(ctx context.Context, dryRun bool) (bool, []plugindomain.UpdateRecord) {
	passID := uuid.NewString()
	logger := s.logger.With("pass_id", passID)

	ctx, span := s.telemetry.Start(ctx, "updater.update_all",
		attribute.String("pass.id", passID),
		attribute.Bool("dry_run", dryRun),
	)

	logger.Info("starting plugin update", "dry_run", dryRun)

	catalog := s.catalog.Snapshot()
	if !catalog.Available() {
		err := fmt.Errorf("plugin catalog unavailable: %s", catalog.State)
		logger.Error("plugin update failed", "error", err)
		telemetry.End(span, err)
		return false, nil
	}

	installed, err := s.store.ListInstalled(ctx)
	if err != nil {
		logger.Error("plugin update failed", "error", err)
		telemetry.End(span, err)
		return false, nil
	}

	testingAllowed := s.settings != nil && s.settings.TestingAllowed()
	outcomes := make([]outcome, len(installed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for idx, plugin := range installed {
		g.Go(func() error {
			outcomes[idx] = s.updatePlugin(gctx, logger, plugin, catalog, testingAllowed, dryRun)
			return nil
		})
	}
	_ = g.Wait()

	success := true
	var records []plugindomain.UpdateRecord
	for _, o := range outcomes {
		if o.failed {
			success = false
		}
		if o.record != nil {
			records = append(records, *o.record)
		}
	}

	span.SetAttributes(attribute.Int("updates", len(records)))
	if success {
		telemetry.End(span, nil)
	} else {
		telemetry.End(span, errors.New("one or more plugin updates failed"))
	}

	logger.Info("plugin update finished", "success", success, "updates", len(records))
	return success, records
}

func (s *UpdateService) updatePlugin(
	ctx context.Context,
	logger hclog.Logger,
	plugin plugindomain.InstalledPlugin,
	catalog *plugindomain.Catalog,
	testingAllowed, dryRun bool,
) (out outcome) {
	logger = logger.With("plugin", plugin.InternalName)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("could not update plugin", "path", plugin.Path, "error", fmt.Sprintf("%v", r))
			out = outcome{}
		}
	}()

	if plugin.Err != nil {
		logger.Error("could not read plugin directory", "path", plugin.Path, "error", plugin.Err)
		return outcome{}
	}
	if len(plugin.Versions) == 0 {
		logger.Info("plugin has no versions", "path", plugin.Path)
		return outcome{}
	}
	if !plugindomain.IsEnabled(plugin.Versions) {
		logger.Trace("plugin is disabled")
		return outcome{}
	}

	latest, _ := plugindomain.Latest(plugin.Versions)
	local, err := s.store.LoadLocalDefinition(latest.Path, plugin.InternalName)
	if err != nil {
		if errors.Is(err, plugindomain.ErrDefinitionNotFound) {
			logger.Info("plugin has no definition", "path", latest.Path)
		} else {
			logger.Error("could not read plugin definition", "path", latest.Path, "error", err)
		}
		return outcome{}
	}

	res := plugindomain.Resolve(plugindomain.ResolveInput{
		Local:          local,
		Remote:         catalog.Find(local.InternalName),
		TestingAllowed: testingAllowed,
		HostAPILevel:   s.apiLevel,
	})
	if !res.ShouldUpdate() {
		switch res.Verdict {
		case plugindomain.VerdictUnparsableRemote:
			logger.Warn("remote version cannot be compared", "remote_version", res.Remote.AssemblyVersion)
		default:
			logger.Info("no update", "reason", res.Verdict.String())
		}
		return outcome{}
	}

	record := plugindomain.UpdateRecord{
		InternalName: res.Remote.InternalName,
		Name:         res.Remote.Name,
		Version:      res.TargetVersion(),
	}
	logger.Info("eligible for update", "version", record.Version, "channel", res.Channel.String())
	s.telemetry.RecordUpdate(ctx, plugin.InternalName, res.Channel.String(), dryRun)

	if dryRun {
		record.WasUpdated = true
		return outcome{record: &record}
	}

	if s.unloader != nil && s.unloader.IsLoaded(local.InternalName) {
		if err := s.unloader.Unload(ctx, local); err != nil {
			logger.Error("plugin disable failed", "error", err)
		}
	}

	for _, v := range plugindomain.SortVersions(plugin.Versions) {
		if v.Status.Disabled() {
			continue
		}
		if err := s.store.SetDisabled(v.Path, true); err != nil {
			logger.Error("could not disable old version", "path", v.Path, "error", err)
		}
	}

	record.WasUpdated = s.installer.Install(ctx, res.Remote, plugindomain.InstallOptions{
		EnableAfterInstall: true,
		IsUpdate:           true,
		Channel:            res.Channel,
	})
	if !record.WasUpdated {
		logger.Error("plugin install failed", "version", record.Version)
	}

	return outcome{record: &record, failed: !record.WasUpdated}
}
