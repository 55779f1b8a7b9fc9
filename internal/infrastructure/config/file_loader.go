package configinfra

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	configports "kilometers.ai/pluginrepo/internal/core/ports/config"
)

// fileConfig is the on-disk YAML shape. Pointer fields distinguish "unset" from zero values.
type fileConfig struct {
	PluginsDir        *string                   `yaml:"plugins_dir"`
	PrimaryRepo       *string                   `yaml:"primary_repo"`
	ThirdRepos        []configdomain.Repository `yaml:"third_repos"`
	AllowTesting      *bool                     `yaml:"allow_testing"`
	APILevel          *int                      `yaml:"api_level"`
	UpdateConcurrency *int                      `yaml:"update_concurrency"`
	HTTPTimeout       *string                   `yaml:"http_timeout"`
	LogLevel          *string                   `yaml:"log_level"`
	Debug             *bool                     `yaml:"debug"`
}

// FileLoader reads the YAML configuration file (priority 3). A missing file
// yields an empty snapshot.
type FileLoader struct {
	path string
}

// NewFileLoader uses path, or $KM_CONFIG_PATH, or ~/.config/kilometers/plugins.yaml
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) Name() string { return "file" }

// Path returns the file the loader reads
func (l *FileLoader) Path() string {
	if l.path != "" {
		return l.path
	}
	if p := os.Getenv("KM_CONFIG_PATH"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "kilometers", "plugins.yaml")
}

func (l *FileLoader) Load(ctx context.Context) (configdomain.Snapshot, error) {
	snap := make(configdomain.Snapshot)
	configPath := l.Path()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	toEntry := func(field string, v interface{}) {
		snap[field] = configdomain.Entry{Key: field, Value: v, Source: "file", SourcePath: configPath, Priority: configdomain.PriorityFile}
	}
	if fc.PluginsDir != nil && *fc.PluginsDir != "" {
		toEntry(configdomain.KeyPluginsDir, *fc.PluginsDir)
	}
	if fc.PrimaryRepo != nil && *fc.PrimaryRepo != "" {
		toEntry(configdomain.KeyPrimaryRepo, *fc.PrimaryRepo)
	}
	if fc.ThirdRepos != nil {
		toEntry(configdomain.KeyThirdRepos, fc.ThirdRepos)
	}
	if fc.AllowTesting != nil {
		toEntry(configdomain.KeyAllowTesting, *fc.AllowTesting)
	}
	if fc.APILevel != nil {
		toEntry(configdomain.KeyAPILevel, *fc.APILevel)
	}
	if fc.UpdateConcurrency != nil {
		toEntry(configdomain.KeyUpdateConcurrency, *fc.UpdateConcurrency)
	}
	if fc.HTTPTimeout != nil {
		// mismatches are ignored like other best-effort conversions
		if d, ok := toDuration(*fc.HTTPTimeout); ok {
			toEntry(configdomain.KeyHTTPTimeout, d)
		}
	}
	if fc.LogLevel != nil && *fc.LogLevel != "" {
		toEntry(configdomain.KeyLogLevel, *fc.LogLevel)
	}
	if fc.Debug != nil {
		toEntry(configdomain.KeyDebug, *fc.Debug)
	}

	return snap, nil
}

var _ configports.Loader = (*FileLoader)(nil)
