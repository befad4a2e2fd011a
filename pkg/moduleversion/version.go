// Package moduleversion implements the four-part numeric version tuple used
// to identify managed modules (Major.Minor.Build.Revision), along with the
// comparison and range operations the binder needs to evaluate override
// rules and detect downgrades.
//
// The shape of this API (Parse/Compare/Satisfies-style range checks) mirrors
// github.com/Masterminds/semver/v3 as wrapped in bayleafwalker-bindery-core's
// internal/semver package, but the parsing itself is hand-written: assembly
// versions are four dot-separated integers with no pre-release/build
// metadata grammar, which the semver library cannot parse.
package moduleversion

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-part numeric version tuple. Missing trailing parts
// default to zero, per spec.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Zero is the default version, equal to "0.0.0.0".
var Zero = Version{}

// Parse parses a dot-separated version string of up to four numeric parts.
// Missing parts default to 0. An empty string parses to Zero with no error,
// matching "missing parts default to 0" semantics for absent versions.
func Parse(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Zero, nil
	}

	parts := strings.Split(raw, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("moduleversion: too many components in %q", raw)
	}

	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Version{}, fmt.Errorf("moduleversion: invalid component %q in %q: %w", p, raw, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("moduleversion: negative component %q in %q", p, raw)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// MustParse parses raw and panics on error. Intended for tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in canonical four-part form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// IsZero reports whether v is the default, unset version.
func (v Version) IsZero() bool {
	return v == Zero
}

// Compare returns -1 if a < b, 0 if a == b, 1 if a > b, comparing
// Major, then Minor, then Build, then Revision.
func Compare(a, b Version) int {
	if a.Major != b.Major {
		return sign(a.Major - b.Major)
	}
	if a.Minor != b.Minor {
		return sign(a.Minor - b.Minor)
	}
	if a.Build != b.Build {
		return sign(a.Build - b.Build)
	}
	if a.Revision != b.Revision {
		return sign(a.Revision - b.Revision)
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Less reports whether a < b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// InRange reports whether v falls within [min, max] inclusive.
func InRange(v, min, max Version) bool {
	return Compare(v, min) >= 0 && Compare(v, max) <= 0
}
