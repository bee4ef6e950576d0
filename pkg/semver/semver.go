package semver

import (
	"fmt"
	"regexp"
	"strconv"
)

// Semver represents a semantic version
type Semver struct {
	Major int
	Minor int
	Patch int
}

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)

// NewSemver creates a Semver from its components
func NewSemver(major, minor, patch int) Semver {
	return Semver{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a semantic version string, tolerating a leading "v" and
// ignoring prerelease and build metadata
func Parse(version string) (Semver, error) {
	matches := semverRegex.FindStringSubmatch(version)
	if matches == nil {
		return Semver{}, fmt.Errorf("invalid semantic version: %s", version)
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])
	patch, _ := strconv.Atoi(matches[3])
	return Semver{Major: major, Minor: minor, Patch: patch}, nil
}

// String returns the string representation of the version
func (s Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
func (s Semver) Compare(other Semver) int {
	if s.Major != other.Major {
		if s.Major < other.Major {
			return -1
		}
		return 1
	}
	if s.Minor != other.Minor {
		if s.Minor < other.Minor {
			return -1
		}
		return 1
	}
	if s.Patch != other.Patch {
		if s.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// AnyCompatible reports whether actual shares a major version with any of
// the required versions
func AnyCompatible(required []Semver, actual Semver) bool {
	for _, r := range required {
		if r.Major == actual.Major {
			return true
		}
	}
	return false
}
