package plugininfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// LocalHost is the host adapter used by the standalone CLI. It has no plugin
// runtime to load into, so it verifies the payload and tracks what it accepted.
type LocalHost struct {
	logger hclog.Logger

	mu     sync.RWMutex
	loaded map[string]string
}

// NewLocalHost creates a host adapter
func NewLocalHost(logger hclog.Logger) *LocalHost {
	return &LocalHost{
		logger: logger.Named("host"),
		loaded: make(map[string]string),
	}
}

// LoadFromPackage checks the payload exists and marks the plugin loaded
func (h *LocalHost) LoadFromPackage(ctx context.Context, path string, isReload bool, reason plugindomain.LoadReason) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat package: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("package %s is a directory", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), plugindomain.PayloadExt)

	h.mu.Lock()
	h.loaded[name] = path
	h.mu.Unlock()

	h.logger.Info("package loaded", "plugin", name, "path", path, "reload", isReload, "reason", reason)
	return nil
}

// IsLoaded reports whether a package for the internal name was accepted
func (h *LocalHost) IsLoaded(internalName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.loaded[internalName]
	return ok
}

// Unload forgets a loaded plugin
func (h *LocalHost) Unload(ctx context.Context, def plugindomain.Definition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.loaded[def.InternalName]; !ok {
		return fmt.Errorf("plugin %s is not loaded", def.InternalName)
	}
	delete(h.loaded, def.InternalName)
	h.logger.Info("package unloaded", "plugin", def.InternalName)
	return nil
}

var (
	_ pluginports.PackageLoader  = (*LocalHost)(nil)
	_ pluginports.PluginUnloader = (*LocalHost)(nil)
)
