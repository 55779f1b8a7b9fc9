package appconfig

import (
	"context"
	"fmt"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	configports "kilometers.ai/pluginrepo/internal/core/ports/config"
)

// Aggregator merges multiple loader snapshots, honoring priorities.
type Aggregator struct {
	loaders   []configports.Loader
	validator configports.Validator
}

func NewAggregator(loaders ...configports.Loader) *Aggregator {
	return &Aggregator{loaders: loaders}
}

// WithValidator checks the merged settings in Load
func (a *Aggregator) WithValidator(v configports.Validator) *Aggregator {
	a.validator = v
	return a
}

// LoadSnapshot returns the merged snapshot, including CLI overrides as priority 1
func (a *Aggregator) LoadSnapshot(ctx context.Context, overrides map[string]interface{}) (configdomain.Snapshot, error) {
	snap := configdomain.Defaults()
	// CLI overrides priority 1
	for field, v := range overrides {
		snap[field] = configdomain.Entry{Key: field, Value: v, Source: "cli", SourcePath: "command_line_flag", Priority: configdomain.PriorityCLI}
	}

	for _, l := range a.loaders {
		s, err := l.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s configuration: %w", l.Name(), err)
		}
		snap.Merge(s)
	}
	return snap, nil
}

// Load merges all sources and returns validated typed settings
func (a *Aggregator) Load(ctx context.Context, overrides map[string]interface{}) (configdomain.Settings, configdomain.Snapshot, error) {
	snap, err := a.LoadSnapshot(ctx, overrides)
	if err != nil {
		return configdomain.Settings{}, nil, err
	}

	settings := snap.Settings()
	if a.validator != nil {
		if err := a.validator.Validate(settings); err != nil {
			return configdomain.Settings{}, snap, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return settings, snap, nil
}
