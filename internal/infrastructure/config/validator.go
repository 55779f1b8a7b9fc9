package configinfra

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	configports "kilometers.ai/pluginrepo/internal/core/ports/config"
)

// maxUpdateConcurrency caps the update worker pool
const maxUpdateConcurrency = 64

// SettingsValidator validates configuration values
type SettingsValidator struct {
	logger hclog.Logger
}

// NewSettingsValidator creates a new configuration validator
func NewSettingsValidator(logger hclog.Logger) *SettingsValidator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &SettingsValidator{logger: logger.Named("config")}
}

// Validate checks every setting and reports all problems at once
func (v *SettingsValidator) Validate(s configdomain.Settings) error {
	var errs []error

	if err := v.ValidateRepositoryURL(s.PrimaryRepo); err != nil {
		errs = append(errs, fmt.Errorf("primary_repo: %w", err))
	}
	for i, repo := range s.ThirdRepos {
		// disabled repositories are never fetched
		if !repo.Enabled {
			continue
		}
		if err := v.ValidateRepositoryURL(repo.URL); err != nil {
			errs = append(errs, fmt.Errorf("third_repos[%d]: %w", i, err))
		}
	}
	if s.PluginsDir == "" {
		errs = append(errs, errors.New("plugins_dir cannot be empty"))
	}
	if s.APILevel < 1 {
		errs = append(errs, fmt.Errorf("api_level must be positive, got %d", s.APILevel))
	}
	if err := v.ValidateConcurrency(s.UpdateConcurrency); err != nil {
		errs = append(errs, fmt.Errorf("update_concurrency: %w", err))
	}
	if err := v.ValidateTimeout(s.HTTPTimeout); err != nil {
		errs = append(errs, fmt.Errorf("http_timeout: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateRepositoryURL validates a manifest URL
func (v *SettingsValidator) ValidateRepositoryURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (must be http or https)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must include host")
	}

	if u.Scheme == "http" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		v.logger.Warn("using non-HTTPS repository", "url", raw)
	}

	return nil
}

// ValidateConcurrency validates the update worker count
func (v *SettingsValidator) ValidateConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	if n > maxUpdateConcurrency {
		return fmt.Errorf("must be at most %d, got %d", maxUpdateConcurrency, n)
	}
	return nil
}

// ValidateTimeout validates the manifest fetch timeout
func (v *SettingsValidator) ValidateTimeout(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("must be at least 1s, got %s", d)
	}
	if d > 10*time.Minute {
		return fmt.Errorf("must be at most 10m, got %s", d)
	}
	return nil
}

var _ configports.Validator = (*SettingsValidator)(nil)
