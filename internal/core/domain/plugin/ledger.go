package plugindomain

import (
	"sort"
	"strings"
)

// Status is the sentinel state of one installed version directory
type Status int

const (
	// StatusActive is an enabled stable build
	StatusActive Status = iota
	// StatusTesting is an enabled testing build
	StatusTesting
	// StatusDisabled is a disabled stable build
	StatusDisabled
	// StatusDisabledTesting is a disabled testing build
	StatusDisabledTesting
)

// StatusFromMarkers translates marker presence into a Status
func StatusFromMarkers(disabled, testing bool) Status {
	switch {
	case disabled && testing:
		return StatusDisabledTesting
	case disabled:
		return StatusDisabled
	case testing:
		return StatusTesting
	default:
		return StatusActive
	}
}

// Markers is the inverse of StatusFromMarkers
func (s Status) Markers() (disabled, testing bool) {
	return s.Disabled(), s.Testing()
}

func (s Status) Disabled() bool { return s == StatusDisabled || s == StatusDisabledTesting }

func (s Status) Testing() bool { return s == StatusTesting || s == StatusDisabledTesting }

// WithDisabled returns the status with the disabled flag set or cleared
func (s Status) WithDisabled(disabled bool) Status {
	return StatusFromMarkers(disabled, s.Testing())
}

// WithTesting returns the status with the testing flag set or cleared
func (s Status) WithTesting(testing bool) Status {
	return StatusFromMarkers(s.Disabled(), testing)
}

func (s Status) String() string {
	switch s {
	case StatusTesting:
		return "testing"
	case StatusDisabled:
		return "disabled"
	case StatusDisabledTesting:
		return "disabled (testing)"
	default:
		return "active"
	}
}

// VersionEntry is one version directory of an installed plugin
type VersionEntry struct {
	// Name is the directory name as found on disk
	Name string
	// Version is nil when Name does not parse
	Version *Version
	Status  Status
	Path    string
}

// NewVersionEntry builds an entry, parsing the directory name
func NewVersionEntry(name, path string, status Status) VersionEntry {
	return VersionEntry{
		Name:    name,
		Version: ParseOptionalVersion(name),
		Status:  status,
		Path:    path,
	}
}

// SortVersions orders entries ascending by parsed version. Unparsable names
// come first, ordered by name among themselves.
func SortVersions(entries []VersionEntry) []VersionEntry {
	sorted := make([]VersionEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := CompareOptional(sorted[i].Version, sorted[j].Version); c != 0 {
			return c < 0
		}
		return strings.Compare(sorted[i].Name, sorted[j].Name) < 0
	})
	return sorted
}

// Latest returns the last entry of the sorted sequence
func Latest(entries []VersionEntry) (VersionEntry, bool) {
	if len(entries) == 0 {
		return VersionEntry{}, false
	}
	sorted := SortVersions(entries)
	return sorted[len(sorted)-1], true
}

// IsEnabled decides whether an installed plugin counts as enabled.
// A disabled testing build at the top does not disable the plugin while any
// sibling version is still enabled.
func IsEnabled(entries []VersionEntry) bool {
	latest, ok := Latest(entries)
	if !ok {
		return false
	}
	if !latest.Status.Disabled() {
		return true
	}
	if !latest.Status.Testing() {
		return false
	}
	for _, e := range entries {
		if !e.Status.Disabled() {
			return true
		}
	}
	return false
}

// InstalledPlugin groups the version directories of one internal name
type InstalledPlugin struct {
	InternalName string
	Path         string
	Versions     []VersionEntry

	// Err is set when the plugin directory could not be read
	Err error
}
