package plugininfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// FileSystemStore keeps the version ledger as <root>/<internalName>/<version>/
// directories with zero-byte .disabled and .testing marker files.
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the plugin directory
func NewFileSystemStore(root string) *FileSystemStore {
	return &FileSystemStore{root: expandPath(root)}
}

// Root returns the plugin root directory
func (s *FileSystemStore) Root() string { return s.root }

// ListInstalled returns every plugin directory with its version directories.
// A plugin directory that cannot be read is returned with Err set so callers
// can skip it without losing the others.
func (s *FileSystemStore) ListInstalled(ctx context.Context) ([]plugindomain.InstalledPlugin, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var installed []plugindomain.InstalledPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pluginDir := filepath.Join(s.root, entry.Name())
		versions, err := s.ListVersions(ctx, pluginDir)
		installed = append(installed, plugindomain.InstalledPlugin{
			InternalName: entry.Name(),
			Path:         pluginDir,
			Versions:     versions,
			Err:          err,
		})
	}

	return installed, nil
}

// ListVersions returns the version directories of one plugin directory
func (s *FileSystemStore) ListVersions(ctx context.Context, pluginDir string) ([]plugindomain.VersionEntry, error) {
	entries, err := os.ReadDir(pluginDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", pluginDir, err)
	}

	var versions []plugindomain.VersionEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		versionDir := filepath.Join(pluginDir, entry.Name())
		status, err := s.ReadStatus(versionDir)
		if err != nil {
			return nil, err
		}
		versions = append(versions, plugindomain.NewVersionEntry(entry.Name(), versionDir, status))
	}

	return versions, nil
}

// VersionDir returns the path of a version directory without touching disk
func (s *FileSystemStore) VersionDir(internalName, version string) string {
	return filepath.Join(s.root, internalName, version)
}

// SetDisabled creates or removes the disabled marker
func (s *FileSystemStore) SetDisabled(versionDir string, disabled bool) error {
	return setMarker(filepath.Join(versionDir, plugindomain.DisabledMarker), disabled)
}

// SetTesting creates or removes the testing marker
func (s *FileSystemStore) SetTesting(versionDir string, testing bool) error {
	return setMarker(filepath.Join(versionDir, plugindomain.TestingMarker), testing)
}

// ReadStatus reads the markers of one version directory
func (s *FileSystemStore) ReadStatus(versionDir string) (plugindomain.Status, error) {
	disabled, err := markerExists(filepath.Join(versionDir, plugindomain.DisabledMarker))
	if err != nil {
		return plugindomain.StatusActive, err
	}
	testing, err := markerExists(filepath.Join(versionDir, plugindomain.TestingMarker))
	if err != nil {
		return plugindomain.StatusActive, err
	}
	return plugindomain.StatusFromMarkers(disabled, testing), nil
}

// LoadLocalDefinition reads <internalName>.json from a version directory.
// A missing file is reported as plugindomain.ErrDefinitionNotFound.
func (s *FileSystemStore) LoadLocalDefinition(versionDir, internalName string) (plugindomain.Definition, error) {
	path := plugindomain.DefinitionFile(versionDir, internalName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return plugindomain.Definition{}, fmt.Errorf("%w: %s", plugindomain.ErrDefinitionNotFound, path)
		}
		return plugindomain.Definition{}, fmt.Errorf("failed to read definition: %w", err)
	}

	var def plugindomain.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return plugindomain.Definition{}, fmt.Errorf("failed to parse definition %s: %w", path, err)
	}
	return def, nil
}

// SaveLocalDefinition writes <internalName>.json into a version directory
func (s *FileSystemStore) SaveLocalDefinition(versionDir string, def plugindomain.Definition) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}
	if err := os.WriteFile(plugindomain.DefinitionFile(versionDir, def.InternalName), data, 0644); err != nil {
		return fmt.Errorf("failed to write definition: %w", err)
	}
	return nil
}

// Recreate deletes a version directory if present and creates it empty
func (s *FileSystemStore) Recreate(versionDir string) error {
	if err := os.RemoveAll(versionDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", versionDir, err)
	}
	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", versionDir, err)
	}
	return nil
}

// Remove deletes a version directory and everything below it
func (s *FileSystemStore) Remove(versionDir string) error {
	if !s.within(versionDir) {
		return fmt.Errorf("refusing to remove %s outside of %s", versionDir, s.root)
	}
	return os.RemoveAll(versionDir)
}

// RemoveIfEmpty deletes a plugin directory that has no entries left
func (s *FileSystemStore) RemoveIfEmpty(pluginDir string) (bool, error) {
	entries, err := os.ReadDir(pluginDir)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", pluginDir, err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(pluginDir); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", pluginDir, err)
	}
	return true, nil
}

// HasPayload reports whether the loadable package exists
func (s *FileSystemStore) HasPayload(versionDir, internalName string) bool {
	info, err := os.Stat(filepath.Join(versionDir, internalName+plugindomain.PayloadExt))
	return err == nil && !info.IsDir()
}

func (s *FileSystemStore) within(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func setMarker(path string, present bool) error {
	if !present {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove marker %s: %w", path, err)
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create marker %s: %w", path, err)
	}
	return f.Close()
}

func markerExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat marker %s: %w", path, err)
	}
}

// expandPath expands ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

var _ pluginports.VersionStore = (*FileSystemStore)(nil)
