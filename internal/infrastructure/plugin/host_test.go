package plugininfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

func TestLocalHost_LoadAndUnload(t *testing.T) {
	ctx := context.Background()
	host := NewLocalHost(hclog.NewNullLogger())
	payload := filepath.Join(t.TempDir(), "Foo.dll")

	err := host.LoadFromPackage(ctx, payload, false, plugindomain.LoadReasonInstaller)
	require.Error(t, err, "missing payload is rejected")
	assert.False(t, host.IsLoaded("Foo"))

	require.NoError(t, os.WriteFile(payload, []byte("payload"), 0644))
	require.NoError(t, host.LoadFromPackage(ctx, payload, false, plugindomain.LoadReasonInstaller))
	assert.True(t, host.IsLoaded("Foo"))

	require.NoError(t, host.Unload(ctx, plugindomain.Definition{InternalName: "Foo"}))
	assert.False(t, host.IsLoaded("Foo"))
	assert.Error(t, host.Unload(ctx, plugindomain.Definition{InternalName: "Foo"}))
}
