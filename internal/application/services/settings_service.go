package services

import (
	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// SettingsService exposes loaded configuration to the update core
type SettingsService struct {
	settings configdomain.Settings
}

// NewSettingsService wraps already validated settings
func NewSettingsService(settings configdomain.Settings) *SettingsService {
	return &SettingsService{settings: settings}
}

// ThirdPartyRepos returns the configured repositories in configured order
func (s *SettingsService) ThirdPartyRepos() []pluginports.RepoSetting {
	repos := make([]pluginports.RepoSetting, 0, len(s.settings.ThirdRepos))
	for _, r := range s.settings.ThirdRepos {
		repos = append(repos, pluginports.RepoSetting{URL: r.URL, Enabled: r.Enabled})
	}
	return repos
}

func (s *SettingsService) TestingAllowed() bool {
	return s.settings.AllowTesting
}

var _ pluginports.SettingsProvider = (*SettingsService)(nil)
