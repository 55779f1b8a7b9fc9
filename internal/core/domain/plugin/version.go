package plugindomain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparsableVersion is returned when a version string is not a dotted numeric version
var ErrUnparsableVersion = errors.New("unparsable version")

// Version is a dotted numeric assembly version with two to four components.
// Components that were not present in the source string are -1 and order
// before any explicit value, so "1.0" < "1.0.0" < "1.0.0.0".
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// ParseVersion parses strings such as "1.2", "1.2.3" or "1.2.3.4".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("%w: %q", ErrUnparsableVersion, s)
	}

	values := [4]int{-1, -1, -1, -1}
	for i, part := range parts {
		if part == "" || strings.ContainsAny(part, "+-") {
			return Version{}, fmt.Errorf("%w: %q", ErrUnparsableVersion, s)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrUnparsableVersion, s)
		}
		values[i] = n
	}

	return Version{Major: values[0], Minor: values[1], Build: values[2], Revision: values[3]}, nil
}

// ParseOptionalVersion returns nil instead of an error for unparsable input.
func ParseOptionalVersion(s string) *Version {
	v, err := ParseVersion(s)
	if err != nil {
		return nil
	}
	return &v
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Build, other.Build},
		{v.Revision, other.Revision},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	parts := []string{strconv.Itoa(v.Major), strconv.Itoa(v.Minor)}
	if v.Build >= 0 {
		parts = append(parts, strconv.Itoa(v.Build))
		if v.Revision >= 0 {
			parts = append(parts, strconv.Itoa(v.Revision))
		}
	}
	return strings.Join(parts, ".")
}

// CompareOptional orders optional versions with nil (unparsable) before every
// parsed version. Two nil versions are equal.
func CompareOptional(a, b *Version) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// IsNewer reports whether candidate orders strictly after current.
// An unparsable candidate is never newer; a parsed candidate is always newer
// than an unparsable current version.
func IsNewer(candidate, current *Version) bool {
	if candidate == nil {
		return false
	}
	return CompareOptional(candidate, current) > 0
}
