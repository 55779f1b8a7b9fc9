package services

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
	"kilometers.ai/pluginrepo/internal/infrastructure/telemetry"
)

// Cleanup reasons
const (
	CleanupReasonDisabled = "disabled"
	CleanupReasonLowerAPI = "lower_api"
)

// RemovedVersion is one version directory deleted by a cleanup
type RemovedVersion struct {
	InternalName string
	Version      string
	Reason       string
}

// CleanupResult summarizes one cleanup run
type CleanupResult struct {
	Removed        []RemovedVersion
	RemovedPlugins []string
	Errors         int
}

// Cleaner deletes disabled and API-incompatible version directories
type Cleaner struct {
	store     pluginports.VersionStore
	apiLevel  int
	logger    hclog.Logger
	telemetry *telemetry.Telemetry
}

func NewCleaner(store pluginports.VersionStore, hostAPILevel int, logger hclog.Logger, tel *telemetry.Telemetry) *Cleaner {
	return &Cleaner{
		store:     store,
		apiLevel:  hostAPILevel,
		logger:    logger.Named("cleaner"),
		telemetry: tel,
	}
}

// Cleanup scans every installed plugin. Failures are logged and counted but
// never stop the scan.
func (c *Cleaner) Cleanup(ctx context.Context) CleanupResult {
	ctx, span := c.telemetry.Start(ctx, "cleaner.cleanup")

	var result CleanupResult
	installed, err := c.store.ListInstalled(ctx)
	if err != nil {
		c.logger.Error("plugin cleanup failed", "error", err)
		result.Errors++
		telemetry.End(span, err)
		return result
	}

	for _, plugin := range installed {
		c.cleanPlugin(ctx, plugin, &result)
	}

	span.SetAttributes(
		attribute.Int("removed_versions", len(result.Removed)),
		attribute.Int("removed_plugins", len(result.RemovedPlugins)),
	)
	telemetry.End(span, nil)
	return result
}

func (c *Cleaner) cleanPlugin(ctx context.Context, plugin plugindomain.InstalledPlugin, result *CleanupResult) {
	logger := c.logger.With("plugin", plugin.InternalName)
	if plugin.Err != nil {
		logger.Error("could not read plugin directory", "path", plugin.Path, "error", plugin.Err)
		result.Errors++
		return
	}

	for _, v := range plugindomain.SortVersions(plugin.Versions) {
		reason := c.reasonFor(logger, plugin.InternalName, v)
		if reason == "" {
			continue
		}

		logger.Info("cleaning up version", "reason", reason, "path", v.Path)
		if err := c.store.Remove(v.Path); err != nil {
			logger.Error("could not clean up version", "path", v.Path, "error", err)
			result.Errors++
			continue
		}
		result.Removed = append(result.Removed, RemovedVersion{
			InternalName: plugin.InternalName,
			Version:      v.Name,
			Reason:       reason,
		})
		c.telemetry.RecordCleanup(ctx, plugin.InternalName, reason)
	}

	removed, err := c.store.RemoveIfEmpty(plugin.Path)
	if err != nil {
		logger.Error("could not clean up plugin directory", "path", plugin.Path, "error", err)
		result.Errors++
		return
	}
	if removed {
		logger.Info("plugin has no versions, removed directory", "path", plugin.Path)
		result.RemovedPlugins = append(result.RemovedPlugins, plugin.InternalName)
	}
}

// reasonFor returns why a version should go, or "" to keep it
func (c *Cleaner) reasonFor(logger hclog.Logger, internalName string, v plugindomain.VersionEntry) string {
	if v.Status.Disabled() {
		return CleanupReasonDisabled
	}

	def, err := c.store.LoadLocalDefinition(v.Path, internalName)
	if err != nil {
		if !errors.Is(err, plugindomain.ErrDefinitionNotFound) {
			logger.Warn("could not read definition, keeping version", "path", v.Path, "error", err)
		}
		return ""
	}

	// one API level of grace
	if def.APILevel < c.apiLevel-1 {
		return CleanupReasonLowerAPI
	}
	return ""
}
