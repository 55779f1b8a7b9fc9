package configdomain

import "time"

// Entry represents a single configuration value with provenance and priority.
type Entry struct {
	Key        string
	Value      interface{}
	Source     string
	SourcePath string
	Priority   int
}

// Snapshot is a collection of config entries keyed by field name.
type Snapshot map[string]Entry

// Merge merges another snapshot into this one respecting priority
// (lower number indicates higher priority).
func (s Snapshot) Merge(other Snapshot) {
	for k, e := range other {
		if existing, ok := s[k]; !ok || e.Priority <= existing.Priority {
			s[k] = e
		}
	}
}

// Configuration keys
const (
	KeyPluginsDir        = "plugins_dir"
	KeyPrimaryRepo       = "primary_repo"
	KeyThirdRepos        = "third_repos"
	KeyAllowTesting      = "allow_testing"
	KeyAPILevel          = "api_level"
	KeyUpdateConcurrency = "update_concurrency"
	KeyHTTPTimeout       = "http_timeout"
	KeyLogLevel          = "log_level"
	KeyDebug             = "debug"
)

// Priorities of the built-in sources
const (
	PriorityCLI      = 1
	PriorityEnv      = 2
	PriorityFile     = 3
	PriorityDefaults = 100
)

// DefaultPrimaryRepo is the manifest every refresh starts with
const DefaultPrimaryRepo = "https://dalamudplugins-1253720819.cos.ap-nanjing.myqcloud.com/pluginmaster.json"

// Repository is one user-configured plugin repository
type Repository struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Settings is the typed view of a merged snapshot
type Settings struct {
	PluginsDir        string
	PrimaryRepo       string
	ThirdRepos        []Repository
	AllowTesting      bool
	APILevel          int
	UpdateConcurrency int
	HTTPTimeout       time.Duration
	LogLevel          string
	Debug             bool
}

// Defaults returns the lowest-priority snapshot
func Defaults() Snapshot {
	snap := make(Snapshot)
	add := func(field string, v interface{}) {
		snap[field] = Entry{Key: field, Value: v, Source: "default", SourcePath: "built-in", Priority: PriorityDefaults}
	}

	add(KeyPluginsDir, "~/.config/kilometers/installedPlugins")
	add(KeyPrimaryRepo, DefaultPrimaryRepo)
	add(KeyThirdRepos, []Repository{})
	add(KeyAllowTesting, false)
	add(KeyAPILevel, 2)
	add(KeyUpdateConcurrency, 4)
	add(KeyHTTPTimeout, 60*time.Second)
	add(KeyLogLevel, "info")
	add(KeyDebug, false)

	return snap
}

// Settings converts the snapshot into typed settings. Values of the wrong type
// fall back to the defaults.
func (s Snapshot) Settings() Settings {
	d := Defaults()
	return Settings{
		PluginsDir:        s.stringOr(KeyPluginsDir, d[KeyPluginsDir].Value.(string)),
		PrimaryRepo:       s.stringOr(KeyPrimaryRepo, DefaultPrimaryRepo),
		ThirdRepos:        s.reposOr(KeyThirdRepos),
		AllowTesting:      s.boolOr(KeyAllowTesting, false),
		APILevel:          s.intOr(KeyAPILevel, d[KeyAPILevel].Value.(int)),
		UpdateConcurrency: s.intOr(KeyUpdateConcurrency, d[KeyUpdateConcurrency].Value.(int)),
		HTTPTimeout:       s.durationOr(KeyHTTPTimeout, d[KeyHTTPTimeout].Value.(time.Duration)),
		LogLevel:          s.stringOr(KeyLogLevel, "info"),
		Debug:             s.boolOr(KeyDebug, false),
	}
}

func (s Snapshot) stringOr(key, fallback string) string {
	if v, ok := s[key].Value.(string); ok && v != "" {
		return v
	}
	return fallback
}

func (s Snapshot) boolOr(key string, fallback bool) bool {
	if v, ok := s[key].Value.(bool); ok {
		return v
	}
	return fallback
}

func (s Snapshot) intOr(key string, fallback int) int {
	if v, ok := s[key].Value.(int); ok {
		return v
	}
	return fallback
}

func (s Snapshot) durationOr(key string, fallback time.Duration) time.Duration {
	if v, ok := s[key].Value.(time.Duration); ok && v > 0 {
		return v
	}
	return fallback
}

func (s Snapshot) reposOr(key string) []Repository {
	if v, ok := s[key].Value.([]Repository); ok {
		return v
	}
	return nil
}
