// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binversion

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-component file version. The zero value is the
// real version 0.0.0.0, not Unknown.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
	Build uint32

	unknown bool
}

// Unknown returns the sentinel used when no version is recoverable.
func Unknown() Version {
	return Version{unknown: true}
}

// IsUnknown reports whether v is the Unknown sentinel.
func (v Version) IsUnknown() bool {
	return v.unknown
}

// Parse parses exactly four dot-separated non-negative decimal
// integers. Signs, whitespace, empty components and values that do not
// fit in 32 bits are rejected.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Version{}, fmt.Errorf("version %q: want 4 dot-separated components, got %d", s, len(parts))
	}

	var components [4]uint32
	for i, part := range parts {
		if part == "" {
			return Version{}, fmt.Errorf("version %q: component %d is empty", s, i+1)
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return Version{}, fmt.Errorf("version %q: component %d (%q) is not a decimal integer", s, i+1, part)
			}
		}
		value, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d: %w", s, i+1, err)
		}
		components[i] = uint32(value)
	}

	return Version{
		Major: components[0],
		Minor: components[1],
		Patch: components[2],
		Build: components[3],
	}, nil
}

// ParseOrUnknown parses s and falls back to Unknown on any error.
func ParseOrUnknown(s string) Version {
	v, err := Parse(s)
	if err != nil {
		return Unknown()
	}
	return v
}

// MustParse is like Parse but panics on error. Intended for constants
// and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String formats v as "major.minor.patch.build", or "unknown" for the
// sentinel. The output of String for a real version always parses back
// to the same value.
func (v Version) String() string {
	if v.unknown {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Compare returns -1, 0 or +1 as a is less than, equal to, or greater
// than b. Unknown sorts after every real version and is equal to
// itself.
func Compare(a, b Version) int {
	switch {
	case a.unknown && b.unknown:
		return 0
	case a.unknown:
		return 1
	case b.unknown:
		return -1
	}

	for _, pair := range [4][2]uint32{
		{a.Major, b.Major},
		{a.Minor, b.Minor},
		{a.Patch, b.Patch},
		{a.Build, b.Build},
	} {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}
