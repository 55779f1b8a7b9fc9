package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/attribute"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
	"kilometers.ai/pluginrepo/internal/infrastructure/telemetry"
)

// RefreshTask is one in-flight or finished catalog refresh
type RefreshTask struct {
	ID   string
	done chan struct{}

	result *plugindomain.Catalog
}

// Done is closed once the refresh has published its final snapshot
func (t *RefreshTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the refresh finishes or ctx ends. Cancelling ctx does not
// stop the refresh itself.
func (t *RefreshTask) Wait(ctx context.Context) (*plugindomain.Catalog, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RepositoryService merges the manifests of the primary and user repositories
// into one catalog. The catalog and its state are published together as one
// immutable snapshot.
type RepositoryService struct {
	primaryURL string
	settings   pluginports.SettingsProvider
	fetcher    pluginports.ManifestFetcher
	logger     hclog.Logger
	telemetry  *telemetry.Telemetry

	snapshot atomic.Pointer[plugindomain.Catalog]

	mu      sync.Mutex
	current *RefreshTask
}

// NewRepositoryService creates the aggregator in the Unknown state
func NewRepositoryService(
	primaryURL string,
	settings pluginports.SettingsProvider,
	fetcher pluginports.ManifestFetcher,
	logger hclog.Logger,
	tel *telemetry.Telemetry,
) *RepositoryService {
	return &RepositoryService{
		primaryURL: primaryURL,
		settings:   settings,
		fetcher:    fetcher,
		logger:     logger.Named("repository"),
		telemetry:  tel,
	}
}

// Snapshot returns the published state/catalog pair
func (s *RepositoryService) Snapshot() *plugindomain.Catalog {
	if c := s.snapshot.Load(); c != nil {
		return c
	}
	return &plugindomain.Catalog{State: plugindomain.RefreshUnknown}
}

// State returns the freshness of the published catalog
func (s *RepositoryService) State() plugindomain.RefreshState {
	return s.Snapshot().State
}

// Catalog returns the merged plugin list, or nil unless the last refresh succeeded
func (s *RepositoryService) Catalog() []plugindomain.Definition {
	c := s.Snapshot()
	if !c.Available() {
		return nil
	}
	return c.Plugins
}

// Repositories lists the primary repository followed by every enabled user repository
func (s *RepositoryService) Repositories() []string {
	repos := []string{s.primaryURL}
	if s.settings == nil {
		return repos
	}
	for _, r := range s.settings.ThirdPartyRepos() {
		if r.Enabled && r.URL != "" {
			repos = append(repos, r.URL)
		}
	}
	return repos
}

// Refresh starts a background refresh and returns without blocking. While a
// refresh is in flight, the running task is returned instead of a new one.
func (s *RepositoryService) Refresh(ctx context.Context) *RefreshTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		select {
		case <-s.current.done:
		default:
			s.logger.Debug("refresh already in progress", "refresh_id", s.current.ID)
			return s.current
		}
	}

	task := &RefreshTask{ID: uuid.NewString(), done: make(chan struct{})}
	s.current = task
	s.publish(&plugindomain.Catalog{State: plugindomain.RefreshInProgress})

	go s.run(ctx, task)
	return task
}

func (s *RepositoryService) run(ctx context.Context, task *RefreshTask) {
	repos := s.Repositories()
	logger := s.logger.With("refresh_id", task.ID)

	ctx, span := s.telemetry.Start(ctx, "repository.refresh",
		attribute.String("refresh.id", task.ID),
		attribute.Int("refresh.repositories", len(repos)),
	)

	var result *plugindomain.Catalog
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("refresh panicked: %v", r)
			logger.Error("could not download plugin catalog", "error", runErr)
			result = &plugindomain.Catalog{State: plugindomain.RefreshFail}
		}
		s.publish(result)
		s.telemetry.RecordRefresh(ctx, result.State.String())
		telemetry.End(span, runErr)
		task.result = result
		close(task.done)
	}()

	manifests := make([][]plugindomain.Definition, 0, len(repos))
	for _, repo := range repos {
		logger.Info("fetching repository", "url", repo)

		defs, err := s.fetcher.FetchManifest(ctx, repo)
		if err != nil {
			runErr = err
			logger.Error("could not download plugin catalog", "url", repo, "error", err)
			result = &plugindomain.Catalog{State: failureState(repos)}
			return
		}
		manifests = append(manifests, defs)
	}

	merged := plugindomain.Merge(manifests)
	logger.Info("plugin catalog refreshed", "repositories", len(repos), "plugins", len(merged))
	result = &plugindomain.Catalog{State: plugindomain.RefreshSuccess, Plugins: merged}
}

func (s *RepositoryService) publish(c *plugindomain.Catalog) {
	s.snapshot.Store(c)
}

// failureState distinguishes a failing primary-only refresh from one that
// included user repositories
func failureState(repos []string) plugindomain.RefreshState {
	if len(repos) > 1 {
		return plugindomain.RefreshFailThirdRepo
	}
	return plugindomain.RefreshFail
}

var _ pluginports.CatalogSource = (*RepositoryService)(nil)
