package plugininfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0755))
	}
}

func TestFileSystemStore_ListInstalled(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)
	ctx := context.Background()

	mkdirs(t,
		filepath.Join(root, "Foo", "1.0.0"),
		filepath.Join(root, "Foo", "1.1.0"),
		filepath.Join(root, "Bar"),
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))
	require.NoError(t, store.SetDisabled(filepath.Join(root, "Foo", "1.0.0"), true))
	require.NoError(t, store.SetTesting(filepath.Join(root, "Foo", "1.1.0"), true))

	installed, err := store.ListInstalled(ctx)
	require.NoError(t, err)
	require.Len(t, installed, 2)

	byName := map[string]plugindomain.InstalledPlugin{}
	for _, p := range installed {
		byName[p.InternalName] = p
	}
	assert.Empty(t, byName["Bar"].Versions)

	foo := plugindomain.SortVersions(byName["Foo"].Versions)
	require.Len(t, foo, 2)
	assert.Equal(t, plugindomain.StatusDisabled, foo[0].Status)
	assert.Equal(t, plugindomain.StatusTesting, foo[1].Status)
	assert.Equal(t, filepath.Join(root, "Foo", "1.1.0"), foo[1].Path)
}

func TestFileSystemStore_ListInstalled_UnreadablePluginKeepsOthers(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)
	mkdirs(t, filepath.Join(root, "Bad", "1.0.0"), filepath.Join(root, "Foo", "1.0.0"))
	// a self-referencing marker makes stat fail with ELOOP
	require.NoError(t, os.Symlink(plugindomain.DisabledMarker, filepath.Join(root, "Bad", "1.0.0", plugindomain.DisabledMarker)))

	installed, err := store.ListInstalled(context.Background())
	require.NoError(t, err)
	require.Len(t, installed, 2)

	byName := map[string]plugindomain.InstalledPlugin{}
	for _, p := range installed {
		byName[p.InternalName] = p
	}
	assert.Error(t, byName["Bad"].Err)
	assert.Empty(t, byName["Bad"].Versions)
	assert.NoError(t, byName["Foo"].Err)
	assert.Len(t, byName["Foo"].Versions, 1)
}

func TestFileSystemStore_ListInstalled_MissingRoot(t *testing.T) {
	store := NewFileSystemStore(filepath.Join(t.TempDir(), "absent"))

	installed, err := store.ListInstalled(context.Background())

	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestFileSystemStore_MarkersAreIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Foo", "1.0.0")
	mkdirs(t, dir)
	store := NewFileSystemStore(filepath.Dir(filepath.Dir(dir)))

	for i := 0; i < 2; i++ {
		require.NoError(t, store.SetDisabled(dir, true))
		require.NoError(t, store.SetTesting(dir, true))
	}
	status, err := store.ReadStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, plugindomain.StatusDisabledTesting, status)

	info, err := os.Stat(filepath.Join(dir, plugindomain.DisabledMarker))
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "markers are zero-byte files")

	for i := 0; i < 2; i++ {
		require.NoError(t, store.SetDisabled(dir, false))
		require.NoError(t, store.SetTesting(dir, false))
	}
	status, err = store.ReadStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, plugindomain.StatusActive, status)
}

func TestFileSystemStore_LocalDefinition(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)
	dir := store.VersionDir("Foo", "1.0.0")
	mkdirs(t, dir)

	_, err := store.LoadLocalDefinition(dir, "Foo")
	assert.ErrorIs(t, err, plugindomain.ErrDefinitionNotFound)

	def := plugindomain.Definition{Name: "Foo Plugin", InternalName: "Foo", AssemblyVersion: "1.0.0", APILevel: 4, RepoNumber: 3}
	require.NoError(t, store.SaveLocalDefinition(dir, def))

	loaded, err := store.LoadLocalDefinition(dir, "Foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo Plugin", loaded.Name)
	assert.Equal(t, 4, loaded.APILevel)
	assert.Zero(t, loaded.RepoNumber, "repository index is not persisted")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Foo.json"), []byte("{"), 0644))
	_, err = store.LoadLocalDefinition(dir, "Foo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, plugindomain.ErrDefinitionNotFound)
}

func TestFileSystemStore_RecreateAndRemove(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)
	dir := store.VersionDir("Foo", "1.0.0")
	mkdirs(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Foo.dll"), []byte("old"), 0644))
	assert.True(t, store.HasPayload(dir, "Foo"))

	require.NoError(t, store.Recreate(dir))
	assert.False(t, store.HasPayload(dir, "Foo"))
	assert.DirExists(t, dir)

	removed, err := store.RemoveIfEmpty(filepath.Join(root, "Foo"))
	require.NoError(t, err)
	assert.False(t, removed, "plugin directory still has a version")

	require.NoError(t, store.Remove(dir))
	assert.NoDirExists(t, dir)

	removed, err = store.RemoveIfEmpty(filepath.Join(root, "Foo"))
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Error(t, store.Remove(root), "the root itself is never removed")
	assert.Error(t, store.Remove(filepath.Dir(root)))
}
