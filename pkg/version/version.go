// Package version provides release version parsing and comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Release is the software release implemented by this module. Nodes
// announce it in dock handshakes so operators can spot mixed-release
// meshes.
const Release = "1.0"

// ReleaseVersion represents a parsed "major.minor" release version.
type ReleaseVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ReleaseVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ReleaseVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ReleaseVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ReleaseVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ReleaseVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ReleaseVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major
// version. Minor releases never change the wire contract.
func (v ReleaseVersion) Compatible(other ReleaseVersion) bool {
	return v.Major == other.Major
}

// Current returns the parsed Release constant.
func Current() ReleaseVersion {
	v, _ := Parse(Release)
	return v
}
