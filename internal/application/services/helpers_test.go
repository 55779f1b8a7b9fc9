package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	httpinfra "kilometers.ai/pluginrepo/internal/infrastructure/http"
	plugininfra "kilometers.ai/pluginrepo/internal/infrastructure/plugin"
)

// MockHost stands in for the plugin runtime

type MockHost struct {
	mock.Mock
}

func (m *MockHost) LoadFromPackage(ctx context.Context, path string, isReload bool, reason plugindomain.LoadReason) error {
	args := m.Called(ctx, path, isReload, reason)
	return args.Error(0)
}

func (m *MockHost) IsLoaded(internalName string) bool {
	args := m.Called(internalName)
	return args.Bool(0)
}

func (m *MockHost) Unload(ctx context.Context, def plugindomain.Definition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

// packageServer serves fixed bodies by path and counts requests per path
type packageServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newPackageServer(t *testing.T, routes map[string][]byte) *packageServer {
	t.Helper()
	ps := &packageServer{hits: map[string]int{}}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		ps.mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *packageServer) Hits(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[path]
}

func (ps *packageServer) TotalHits() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	total := 0
	for _, n := range ps.hits {
		total += n
	}
	return total
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func manifestBytes(t *testing.T, defs ...plugindomain.Definition) []byte {
	t.Helper()
	data, err := json.Marshal(defs)
	require.NoError(t, err)
	return data
}

func newClient() *httpinfra.RepositoryClient {
	return httpinfra.NewRepositoryClient(5*time.Second, "test", hclog.NewNullLogger())
}

func newTestInstaller(t *testing.T, store *plugininfra.FileSystemStore, host *MockHost, opts ...InstallerOption) *Installer {
	t.Helper()
	opts = append([]InstallerOption{WithTempDir(t.TempDir())}, opts...)
	return NewInstaller(store, newClient(), plugininfra.NewArchiveExtractor(), host, hclog.NewNullLogger(), opts...)
}

func settingsWith(allowTesting bool, repos ...configdomain.Repository) *SettingsService {
	s := configdomain.Defaults().Settings()
	s.AllowTesting = allowTesting
	s.ThirdRepos = repos
	return NewSettingsService(s)
}

// installVersion lays out <root>/<name>/<version>/ with a payload, a local
// definition and the requested markers
func installVersion(t *testing.T, root string, def plugindomain.Definition, disabled, testing bool) string {
	t.Helper()
	dir := filepath.Join(root, def.InternalName, def.AssemblyVersion)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, def.InternalName+".dll"), []byte("old payload"), 0644))

	data, err := json.Marshal(def)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, def.InternalName+".json"), data, 0644))

	if disabled {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".disabled"), nil, 0644))
	}
	if testing {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".testing"), nil, 0644))
	}
	return dir
}

// staticCatalog publishes a fixed snapshot
type staticCatalog struct {
	catalog *plugindomain.Catalog
}

func (s staticCatalog) Snapshot() *plugindomain.Catalog { return s.catalog }

func successCatalog(defs ...plugindomain.Definition) staticCatalog {
	return staticCatalog{catalog: &plugindomain.Catalog{State: plugindomain.RefreshSuccess, Plugins: plugindomain.Merge([][]plugindomain.Definition{defs})}}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
