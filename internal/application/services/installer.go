package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
	"kilometers.ai/pluginrepo/internal/infrastructure/logging"
	"kilometers.ai/pluginrepo/internal/infrastructure/telemetry"
)

// Installer downloads, unpacks and enables one plugin version
type Installer struct {
	store      pluginports.VersionStore
	downloader pluginports.PackageDownloader
	extractor  pluginports.ArchiveExtractor
	loader     pluginports.PackageLoader
	mirrors    []plugindomain.MirrorRule
	tempDir    string
	logger     hclog.Logger
	telemetry  *telemetry.Telemetry
}

// InstallerOption configures an Installer
type InstallerOption func(*Installer)

// WithMirrorRules replaces the download mirror rules
func WithMirrorRules(rules []plugindomain.MirrorRule) InstallerOption {
	return func(i *Installer) { i.mirrors = rules }
}

// WithTempDir sets where packages are downloaded before extraction
func WithTempDir(dir string) InstallerOption {
	return func(i *Installer) { i.tempDir = dir }
}

// WithTelemetry attaches spans and counters
func WithTelemetry(t *telemetry.Telemetry) InstallerOption {
	return func(i *Installer) { i.telemetry = t }
}

// NewInstaller creates an installer using the default mirror rules
func NewInstaller(
	store pluginports.VersionStore,
	downloader pluginports.PackageDownloader,
	extractor pluginports.ArchiveExtractor,
	loader pluginports.PackageLoader,
	logger hclog.Logger,
	opts ...InstallerOption,
) *Installer {
	i := &Installer{
		store:      store,
		downloader: downloader,
		extractor:  extractor,
		loader:     loader,
		mirrors:    plugindomain.DefaultMirrorRules,
		logger:     logger.Named("installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install places def into its version directory and hands it to the loader.
// It never panics; every failure is logged and reported as false.
func (i *Installer) Install(ctx context.Context, def plugindomain.Definition, opts plugindomain.InstallOptions) (ok bool) {
	ctx, span := i.telemetry.Start(ctx, "installer.install",
		attribute.String("plugin", def.InternalName),
		attribute.String("channel", opts.Channel.String()),
		attribute.Bool("update", opts.IsUpdate),
	)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("install panicked: %v", r)
		}
		if err != nil {
			logging.LogErrorTree(i.logger, "plugin installation failed", err,
				"plugin", def.InternalName, "version", def.VersionFor(opts.Channel))
			ok = false
		} else {
			ok = true
		}
		i.telemetry.RecordInstall(ctx, def.InternalName, ok)
		telemetry.End(span, err)
	}()

	err = i.install(ctx, def, opts)
	return
}

func (i *Installer) install(ctx context.Context, def plugindomain.Definition, opts plugindomain.InstallOptions) error {
	if err := def.Validate(); err != nil {
		return err
	}

	version := def.VersionFor(opts.Channel)
	if err := plugindomain.ValidateVersionDir(version); err != nil {
		return err
	}

	logger := i.logger.With("plugin", def.InternalName, "version", version, "channel", opts.Channel.String())
	logger.Debug("installing plugin", "update", opts.IsUpdate, "enable", opts.EnableAfterInstall)

	versionDir := i.store.VersionDir(def.InternalName, version)
	payload := def.PayloadFile(versionDir)

	status, err := i.store.ReadStatus(versionDir)
	if err != nil {
		return fmt.Errorf("failed to read markers of %s: %w", versionDir, err)
	}
	wasDisabled := status.Disabled()

	if i.store.HasPayload(versionDir, def.InternalName) {
		if !opts.EnableAfterInstall {
			logger.Debug("plugin already installed and left inactive")
			return nil
		}
		if err := i.store.SetDisabled(versionDir, false); err != nil {
			return fmt.Errorf("failed to enable %s: %w", versionDir, err)
		}
		logger.Info("plugin already installed, enabling")
		return i.load(ctx, payload, opts)
	}

	// the host may still hold files from this directory open
	if err := i.store.Recreate(versionDir); err != nil {
		logger.Warn("could not recreate version directory", "path", versionDir, "error", err)
	}

	testingDownload := def.WantsTestingDownload(opts.Channel)
	url := def.DownloadURL(testingDownload, opts.IsUpdate)
	if url == "" {
		return fmt.Errorf("plugin %s publishes no download link for this install", def.InternalName)
	}

	if err := i.fetchInto(ctx, url, versionDir); err != nil {
		mirror := plugindomain.MirrorURL(url, i.mirrors)
		logger.Warn("download failed, retrying through mirror", "url", url, "mirror", mirror, "error", err)
		if err := i.fetchInto(ctx, mirror, versionDir); err != nil {
			return fmt.Errorf("failed to install %s from mirror: %w", def.InternalName, err)
		}
	}

	if err := i.ensureDefinition(versionDir, def); err != nil {
		return err
	}

	if wasDisabled || !opts.EnableAfterInstall {
		if err := i.store.SetDisabled(versionDir, true); err != nil {
			return fmt.Errorf("failed to disable %s: %w", versionDir, err)
		}
		logger.Info("plugin installed disabled", "was_disabled", wasDisabled)
		return nil
	}

	if err := i.store.SetTesting(versionDir, testingDownload); err != nil {
		return fmt.Errorf("failed to mark channel of %s: %w", versionDir, err)
	}
	if !i.store.HasPayload(versionDir, def.InternalName) {
		return fmt.Errorf("%s: %w", def.InternalName, plugindomain.ErrNoPayload)
	}

	logger.Info("plugin installed", "testing", testingDownload)
	return i.load(ctx, payload, opts)
}

func (i *Installer) load(ctx context.Context, payload string, opts plugindomain.InstallOptions) error {
	reason := plugindomain.LoadReasonInstaller
	if opts.IsUpdate {
		reason = plugindomain.LoadReasonUpdate
	}
	if err := i.loader.LoadFromPackage(ctx, payload, false, reason); err != nil {
		return fmt.Errorf("failed to load %s: %w", payload, err)
	}
	return nil
}

// fetchInto downloads url to a temporary file and extracts it into versionDir
func (i *Installer) fetchInto(ctx context.Context, url, versionDir string) (err error) {
	tmp, err := os.CreateTemp(i.tempDir, "km-plugin-*.pkg")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		err = errors.Join(err, ignoreNotExist(os.Remove(tmp.Name())))
	}()

	_, dlErr := i.downloader.Download(ctx, url, tmp)
	if closeErr := tmp.Close(); dlErr == nil && closeErr != nil {
		dlErr = fmt.Errorf("failed to write %s: %w", tmp.Name(), closeErr)
	}
	if dlErr != nil {
		return dlErr
	}

	if err := i.extractor.Extract(tmp.Name(), versionDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", filepath.Base(url), err)
	}
	return nil
}

// ensureDefinition stores the definition next to the payload unless the package shipped one
func (i *Installer) ensureDefinition(versionDir string, def plugindomain.Definition) error {
	_, err := i.store.LoadLocalDefinition(versionDir, def.InternalName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, plugindomain.ErrDefinitionNotFound) {
		i.logger.Warn("shipped definition unreadable, replacing", "plugin", def.InternalName, "error", err)
	}
	if err := i.store.SaveLocalDefinition(versionDir, def); err != nil {
		return fmt.Errorf("failed to save definition of %s: %w", def.InternalName, err)
	}
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var _ pluginports.PluginInstaller = (*Installer)(nil)
