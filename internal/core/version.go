package core

import (
	"regexp"
	"sort"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

// CompareVersions returns -1, 0, or 1 comparing two artifact versions.
// Debian ordering comes first, which handles dotted numeric versions
// followed by alphanumeric qualifiers. PEP 440 ordering applies when Debian
// parsing rejects either value, and plain string order after that.
func CompareVersions(a string, b string) int {
	if a == b {
		return 0
	}
	if v1, err1 := debversion.NewVersion(a); err1 == nil {
		if v2, err2 := debversion.NewVersion(b); err2 == nil {
			return v1.Compare(v2)
		}
	}
	if v1, err1 := pep440.Parse(a); err1 == nil {
		if v2, err2 := pep440.Parse(b); err2 == nil {
			return v1.Compare(v2)
		}
	}
	return strings.Compare(a, b)
}

// HighestVersion returns the greatest of versions, or false when empty.
func HighestVersion(versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	ordered := append([]string(nil), versions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return CompareVersions(ordered[i], ordered[j]) > 0
	})
	return ordered[0], true
}

// MatchingVersions keeps the versions fully matched by pattern.
func MatchingVersions(versions []string, pattern string) ([]string, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, version := range versions {
		if re.MatchString(version) {
			out = append(out, version)
		}
	}
	return out, nil
}

// IsSnapshotVersion reports Maven snapshot versions.
func IsSnapshotVersion(version string) bool {
	return strings.HasSuffix(version, "-SNAPSHOT")
}
