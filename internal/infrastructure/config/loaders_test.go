package configinfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
)

func TestEnvLoader_LoadEnv(t *testing.T) {
	t.Setenv("KM_PLUGINS_DIR", "/opt/plugins")
	t.Setenv("KM_THIRD_REPOS", "https://a.example/repo.json, ,https://b.example/repo.json")
	t.Setenv("KM_ALLOW_TESTING", "true")
	t.Setenv("KM_API_LEVEL", "4")
	t.Setenv("KM_HTTP_TIMEOUT", "15s")
	t.Setenv("KM_UPDATE_CONCURRENCY", "not-a-number")

	snap := NewEnvLoader().LoadEnv()

	assert.Equal(t, "/opt/plugins", snap[configdomain.KeyPluginsDir].Value)
	assert.Equal(t, "KM_PLUGINS_DIR", snap[configdomain.KeyPluginsDir].SourcePath)
	assert.Equal(t, configdomain.PriorityEnv, snap[configdomain.KeyPluginsDir].Priority)
	assert.Equal(t, true, snap[configdomain.KeyAllowTesting].Value)
	assert.Equal(t, 4, snap[configdomain.KeyAPILevel].Value)
	assert.Equal(t, 15*time.Second, snap[configdomain.KeyHTTPTimeout].Value)
	assert.Equal(t, []configdomain.Repository{
		{URL: "https://a.example/repo.json", Enabled: true},
		{URL: "https://b.example/repo.json", Enabled: true},
	}, snap[configdomain.KeyThirdRepos].Value)

	_, present := snap[configdomain.KeyUpdateConcurrency]
	assert.False(t, present, "unconvertible values are skipped")
}

func TestFileLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plugins_dir: /srv/plugins
allow_testing: true
api_level: 5
update_concurrency: 2
http_timeout: 30s
third_repos:
  - url: https://one.example/pluginmaster.json
    enabled: true
  - url: https://two.example/pluginmaster.json
    enabled: false
`), 0644))

	snap, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/srv/plugins", snap[configdomain.KeyPluginsDir].Value)
	assert.Equal(t, path, snap[configdomain.KeyPluginsDir].SourcePath)
	assert.Equal(t, configdomain.PriorityFile, snap[configdomain.KeyPluginsDir].Priority)
	assert.Equal(t, true, snap[configdomain.KeyAllowTesting].Value)
	assert.Equal(t, 5, snap[configdomain.KeyAPILevel].Value)
	assert.Equal(t, 2, snap[configdomain.KeyUpdateConcurrency].Value)
	assert.Equal(t, 30*time.Second, snap[configdomain.KeyHTTPTimeout].Value)
	assert.Equal(t, []configdomain.Repository{
		{URL: "https://one.example/pluginmaster.json", Enabled: true},
		{URL: "https://two.example/pluginmaster.json", Enabled: false},
	}, snap[configdomain.KeyThirdRepos].Value)

	_, present := snap[configdomain.KeyDebug]
	assert.False(t, present, "unset keys stay out of the snapshot")
}

func TestFileLoader_MissingFileIsEmpty(t *testing.T) {
	snap, err := NewFileLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestFileLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_level: [unterminated"), 0644))

	_, err := NewFileLoader(path).Load(context.Background())

	assert.Error(t, err)
}

func TestFileLoader_PathFromEnvironment(t *testing.T) {
	t.Setenv("KM_CONFIG_PATH", "/etc/km/plugins.yaml")

	assert.Equal(t, "/etc/km/plugins.yaml", NewFileLoader("").Path())
	assert.Equal(t, "/explicit.yaml", NewFileLoader("/explicit.yaml").Path())
}
