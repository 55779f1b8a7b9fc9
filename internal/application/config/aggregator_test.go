package appconfig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
)

type staticLoader struct {
	name string
	snap configdomain.Snapshot
	err  error
}

func (l staticLoader) Load(ctx context.Context) (configdomain.Snapshot, error) { return l.snap, l.err }
func (l staticLoader) Name() string                                             { return l.name }

type rejectAll struct{}

func (rejectAll) Validate(configdomain.Settings) error { return errors.New("rejected") }

func entry(key string, v interface{}, priority int) configdomain.Entry {
	return configdomain.Entry{Key: key, Value: v, Priority: priority}
}

func TestAggregator_Priorities(t *testing.T) {
	env := staticLoader{name: "env", snap: configdomain.Snapshot{
		configdomain.KeyAPILevel:   entry(configdomain.KeyAPILevel, 4, configdomain.PriorityEnv),
		configdomain.KeyPluginsDir: entry(configdomain.KeyPluginsDir, "/env/plugins", configdomain.PriorityEnv),
	}}
	file := staticLoader{name: "file", snap: configdomain.Snapshot{
		configdomain.KeyAPILevel:     entry(configdomain.KeyAPILevel, 3, configdomain.PriorityFile),
		configdomain.KeyAllowTesting: entry(configdomain.KeyAllowTesting, true, configdomain.PriorityFile),
	}}

	settings, snap, err := NewAggregator(env, file).Load(context.Background(), map[string]interface{}{
		configdomain.KeyPluginsDir: "/cli/plugins",
	})
	require.NoError(t, err)

	assert.Equal(t, "/cli/plugins", settings.PluginsDir)
	assert.Equal(t, "cli", snap[configdomain.KeyPluginsDir].Source)
	assert.Equal(t, 4, settings.APILevel, "env beats file")
	assert.True(t, settings.AllowTesting)
	assert.Equal(t, 60*time.Second, settings.HTTPTimeout, "defaults fill the rest")
	assert.Equal(t, configdomain.DefaultPrimaryRepo, settings.PrimaryRepo)
}

func TestAggregator_LoaderError(t *testing.T) {
	broken := staticLoader{name: "file", err: errors.New("permission denied")}

	_, err := NewAggregator(broken).LoadSnapshot(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestAggregator_Validator(t *testing.T) {
	_, _, err := NewAggregator().WithValidator(rejectAll{}).Load(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
