package plugindomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func entry(name string, status Status) VersionEntry {
	return NewVersionEntry(name, "/plugins/Foo/"+name, status)
}

func names(entries []VersionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSortVersions_UnparsableFirst(t *testing.T) {
	entries := []VersionEntry{
		entry("1.10.0", StatusActive),
		entry("garbage", StatusActive),
		entry("1.2.0", StatusActive),
		entry("1.2", StatusActive),
		entry("another", StatusActive),
	}

	sorted := SortVersions(entries)

	assert.Equal(t, []string{"another", "garbage", "1.2", "1.2.0", "1.10.0"}, names(sorted))
	assert.Equal(t, "1.10.0", entries[0].Name, "input slice must not be reordered")
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok, "no subdirectories means no latest")

	latest, ok := Latest([]VersionEntry{entry("1.0.0", StatusActive), entry("2.0.0", StatusDisabled)})
	require.True(t, ok)
	assert.Equal(t, "2.0.0", latest.Name)

	latest, ok = Latest([]VersionEntry{entry("dev", StatusActive)})
	require.True(t, ok)
	assert.Nil(t, latest.Version, "only unparsable versions leaves no valid latest")
}

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		entries  []VersionEntry
		expected bool
	}{
		{
			name:     "OnlyVersionEnabled",
			entries:  []VersionEntry{entry("1.0.0", StatusActive)},
			expected: true,
		},
		{
			name:     "OnlyVersionDisabled",
			entries:  []VersionEntry{entry("1.0.0", StatusDisabled)},
			expected: false,
		},
		{
			name:     "EnabledTestingLatest",
			entries:  []VersionEntry{entry("1.0.0", StatusDisabled), entry("1.1.0", StatusTesting)},
			expected: true,
		},
		{
			name:     "DisabledTestingLatest_StableSiblingEnabled",
			entries:  []VersionEntry{entry("1.0.0", StatusActive), entry("1.1.0", StatusDisabledTesting)},
			expected: true,
		},
		{
			name:     "DisabledTestingLatest_AllSiblingsDisabled",
			entries:  []VersionEntry{entry("1.0.0", StatusDisabled), entry("1.1.0", StatusDisabledTesting)},
			expected: false,
		},
		{
			name:     "DisabledStableLatest_OlderEnabledIgnored",
			entries:  []VersionEntry{entry("1.0.0", StatusActive), entry("1.1.0", StatusDisabled)},
			expected: false,
		},
		{
			name:     "NoVersions",
			entries:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEnabled(tt.entries))
		})
	}
}

func TestStatus_MarkersRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusActive, StatusTesting, StatusDisabled, StatusDisabledTesting} {
		disabled, testing := s.Markers()
		assert.Equal(t, s, StatusFromMarkers(disabled, testing))
	}
	assert.Equal(t, StatusDisabledTesting, StatusTesting.WithDisabled(true))
	assert.Equal(t, StatusActive, StatusDisabled.WithDisabled(false))
	assert.Equal(t, StatusDisabled, StatusDisabledTesting.WithTesting(false))
}

// Property-based tests using rapid

func TestSortVersions_PropertyBased_OrderAndLatest(t *testing.T) {
	nameGen := rapid.OneOf(
		rapid.StringMatching(`[0-9]{1,2}\.[0-9]{1,2}(\.[0-9]{1,2}){0,2}`),
		rapid.StringMatching(`[a-z]{1,6}`),
	)

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(nameGen, 0, 12).Draw(t, "names")
		entries := make([]VersionEntry, 0, len(raw))
		for _, n := range raw {
			entries = append(entries, entry(n, StatusActive))
		}

		sorted := SortVersions(entries)
		require.Len(t, sorted, len(entries))

		seenParsed := false
		for i, e := range sorted {
			if e.Version != nil {
				seenParsed = true
			} else {
				assert.False(t, seenParsed, "unparsable %q after a parsed version", e.Name)
			}
			if i > 0 {
				assert.LessOrEqual(t, CompareOptional(sorted[i-1].Version, e.Version), 0)
			}
		}

		var max *Version
		for _, e := range entries {
			if e.Version != nil && (max == nil || e.Version.Compare(*max) > 0) {
				max = e.Version
			}
		}
		latest, ok := Latest(entries)
		if len(entries) == 0 {
			assert.False(t, ok)
			return
		}
		require.True(t, ok)
		if max != nil {
			require.NotNil(t, latest.Version)
			assert.Equal(t, 0, latest.Version.Compare(*max))
		} else {
			assert.Nil(t, latest.Version)
		}
	})
}
