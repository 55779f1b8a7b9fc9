package configinfra

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	configdomain "kilometers.ai/pluginrepo/internal/core/domain/config"
	configports "kilometers.ai/pluginrepo/internal/core/ports/config"
)

type EnvLoader struct {
	lookup func(string) string
}

func NewEnvLoader() *EnvLoader { return &EnvLoader{lookup: os.Getenv} }

func (l *EnvLoader) Name() string { return "env" }

// Load implements Loader by returning the environment snapshot.
func (l *EnvLoader) Load(ctx context.Context) (configdomain.Snapshot, error) {
	return l.LoadEnv(), nil
}

// LoadEnv builds a snapshot from standard KM_* environment variables (priority 2).
// Values that do not convert are skipped.
func (l *EnvLoader) LoadEnv() configdomain.Snapshot {
	snap := make(configdomain.Snapshot)
	add := func(key, field string, convert func(string) (interface{}, bool)) {
		v := strings.TrimSpace(l.lookup(key))
		if v == "" {
			return
		}
		val := interface{}(v)
		if convert != nil {
			var ok bool
			if val, ok = convert(v); !ok {
				return
			}
		}
		snap[field] = configdomain.Entry{Key: field, Value: val, Source: "env", SourcePath: key, Priority: configdomain.PriorityEnv}
	}

	add("KM_PLUGINS_DIR", configdomain.KeyPluginsDir, nil)
	add("KM_PLUGIN_REPO", configdomain.KeyPrimaryRepo, nil)
	add("KM_THIRD_REPOS", configdomain.KeyThirdRepos, parseRepoList)
	add("KM_ALLOW_TESTING", configdomain.KeyAllowTesting, func(s string) (interface{}, bool) { return toBool(s) })
	add("KM_API_LEVEL", configdomain.KeyAPILevel, func(s string) (interface{}, bool) { return toInt(s) })
	add("KM_UPDATE_CONCURRENCY", configdomain.KeyUpdateConcurrency, func(s string) (interface{}, bool) { return toInt(s) })
	add("KM_HTTP_TIMEOUT", configdomain.KeyHTTPTimeout, func(s string) (interface{}, bool) { return toDuration(s) })
	add("KM_LOG_LEVEL", configdomain.KeyLogLevel, nil)
	add("KM_DEBUG", configdomain.KeyDebug, func(s string) (interface{}, bool) { return toBool(s) })

	return snap
}

// parseRepoList reads a comma separated list of repository URLs, all enabled
func parseRepoList(s string) (interface{}, bool) {
	var repos []configdomain.Repository
	for _, part := range strings.Split(s, ",") {
		if url := strings.TrimSpace(part); url != "" {
			repos = append(repos, configdomain.Repository{URL: url, Enabled: true})
		}
	}
	return repos, len(repos) > 0
}

func toInt(x interface{}) (int, bool) {
	switch t := x.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toBool(x interface{}) (bool, bool) {
	switch t := x.(type) {
	case bool:
		return t, true
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, true
		}
	}
	return false, false
}

func toDuration(x interface{}) (time.Duration, bool) {
	switch t := x.(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(t)); err == nil {
			return d, true
		}
	case int:
		return time.Duration(t) * time.Second, true
	}
	return 0, false
}

var _ configports.Loader = (*EnvLoader)(nil)
