// Package version computes release version bumps for vendored packages.
// Versions are MAJOR.MINOR.PATCH with an optional -beta.N pre-release.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const betaMarker = "-beta."

// Kind selects which component a bump increments.
type Kind string

const (
	KindBeta  Kind = "beta"
	KindPatch Kind = "patch"
	KindMinor Kind = "minor"
	KindMajor Kind = "major"
)

// Kinds lists every bump kind in the order they are usually presented.
var Kinds = []Kind{KindBeta, KindPatch, KindMinor, KindMajor}

// ParseKind parses a bump kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBeta, KindPatch, KindMinor, KindMajor:
		return k, nil
	default:
		return "", fmt.Errorf("unknown bump kind: %q (must be beta, patch, minor, or major)", s)
	}
}

// Version is a parsed MAJOR.MINOR.PATCH[-beta.N] version.
type Version struct {
	Major, Minor, Patch int
	// Beta is the beta number, or 0 for a release version.
	Beta int
}

// Parse parses a version string such as "0.85.3-beta.2".
func Parse(s string) (Version, error) {
	if !semver.IsValid("v" + s) {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	if semver.Build("v"+s) != "" {
		return Version{}, fmt.Errorf("invalid version %q: build metadata is not supported", s)
	}

	var v Version
	base := s
	if pre := semver.Prerelease("v" + s); pre != "" {
		num, ok := strings.CutPrefix(pre, betaMarker)
		if !ok {
			return Version{}, fmt.Errorf("invalid version %q: only -beta.N pre-releases are supported", s)
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 {
			return Version{}, fmt.Errorf("invalid version %q: bad beta number", s)
		}
		v.Beta = n
		base = strings.TrimSuffix(s, pre)
	}

	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: want MAJOR.MINOR.PATCH", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, nil
}

// String formats the version without a leading "v".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Beta > 0 {
		s += fmt.Sprintf("%s%d", betaMarker, v.Beta)
	}
	return s
}

// Bump returns the version that follows current.
//
// A beta bump increments the beta number, starts beta.1 on a release
// version, or with removeBeta drops the beta suffix. Patch, minor and major
// bumps reset the lower components and start at beta.1 unless removeBeta is
// set.
func Bump(current string, kind Kind, removeBeta bool) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}

	switch kind {
	case KindBeta:
		switch {
		case removeBeta && v.Beta > 0:
			v.Beta = 0
		default:
			v.Beta++
		}
		return v.String(), nil
	case KindPatch:
		v.Patch++
	case KindMinor:
		v.Minor++
		v.Patch = 0
	case KindMajor:
		v.Major++
		v.Minor, v.Patch = 0, 0
	default:
		return "", fmt.Errorf("unknown bump kind: %q", kind)
	}

	v.Beta = 0
	if !removeBeta {
		v.Beta = 1
	}
	return v.String(), nil
}
