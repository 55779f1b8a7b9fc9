package pluginports

import (
	"context"
	"io"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

// VersionStore persists the version ledger of installed plugins
type VersionStore interface {
	// Root returns the plugin root directory
	Root() string

	// ListInstalled returns every plugin directory with its version directories.
	// Unreadable plugin directories carry their error in InstalledPlugin.Err.
	ListInstalled(ctx context.Context) ([]plugindomain.InstalledPlugin, error)

	// ListVersions returns the version directories of one plugin directory
	ListVersions(ctx context.Context, pluginDir string) ([]plugindomain.VersionEntry, error)

	// VersionDir returns the path of a version directory without touching disk
	VersionDir(internalName, version string) string

	// SetDisabled creates or removes the disabled marker
	SetDisabled(versionDir string, disabled bool) error

	// SetTesting creates or removes the testing marker
	SetTesting(versionDir string, testing bool) error

	// ReadStatus reads the markers of one version directory
	ReadStatus(versionDir string) (plugindomain.Status, error)

	// LoadLocalDefinition reads <internalName>.json from a version directory
	LoadLocalDefinition(versionDir, internalName string) (plugindomain.Definition, error)

	// SaveLocalDefinition writes <internalName>.json into a version directory
	SaveLocalDefinition(versionDir string, def plugindomain.Definition) error

	// Recreate deletes a version directory if present and creates it empty
	Recreate(versionDir string) error

	// Remove deletes a version directory and everything below it
	Remove(versionDir string) error

	// RemoveIfEmpty deletes a plugin directory that has no entries left
	RemoveIfEmpty(pluginDir string) (bool, error)

	// HasPayload reports whether the loadable package exists
	HasPayload(versionDir, internalName string) bool
}

// ManifestFetcher downloads one repository manifest
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, url string) ([]plugindomain.Definition, error)
}

// PackageDownloader streams a package archive into w
type PackageDownloader interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// ArchiveExtractor unpacks a downloaded archive into a directory
type ArchiveExtractor interface {
	Extract(archivePath, targetDir string) error
}

// PackageLoader hands an installed payload to the host.
// A nil error means the host accepted the package.
type PackageLoader interface {
	LoadFromPackage(ctx context.Context, path string, isReload bool, reason plugindomain.LoadReason) error
}

// PluginUnloader lets the update pass take a running plugin down first
type PluginUnloader interface {
	IsLoaded(internalName string) bool
	Unload(ctx context.Context, def plugindomain.Definition) error
}

// Notifier presents update records to the user
type Notifier interface {
	NotifyUpdates(header string, records []plugindomain.UpdateRecord)
}

// RepoSetting is one user-configured repository
type RepoSetting struct {
	URL     string `yaml:"url" json:"url"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// SettingsProvider exposes the user configuration the core reads
type SettingsProvider interface {
	ThirdPartyRepos() []RepoSetting
	TestingAllowed() bool
}

// PluginInstaller materializes one plugin version on disk.
// Failures are reported as false, never as errors or panics.
type PluginInstaller interface {
	Install(ctx context.Context, def plugindomain.Definition, opts plugindomain.InstallOptions) bool
}

// CatalogSource exposes the published catalog snapshot
type CatalogSource interface {
	Snapshot() *plugindomain.Catalog
}
