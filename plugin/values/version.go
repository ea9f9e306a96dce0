// Package values contains immutable value objects for the plugin domain.
package values

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionCoercionError indicates a version string that cannot be coerced
// into semantic form.
type VersionCoercionError struct {
	Input string
	Err   error
}

func (e *VersionCoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %q to a semantic version: %v", e.Input, e.Err)
}

func (e *VersionCoercionError) Unwrap() error {
	return e.Err
}

// Version is a semantic version coerced from a loosely formatted string.
// The zero value is not a valid version.
type Version struct {
	v *semver.Version
}

// extraGroups matches a core with more than three numeric groups, e.g. "1.2.3.4-beta".
var extraGroups = regexp.MustCompile(`^(v?\d+\.\d+\.\d+)((?:\.\d+)+)(.*)$`)

// CoerceVersion parses text into a Version.
// Missing minor and patch components are filled with zero ("1.2" -> "1.2.0").
// Numeric groups past the patch move into build metadata ("1.2.3.4" -> "1.2.3+4").
func CoerceVersion(text string) (Version, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Version{}, &VersionCoercionError{Input: text, Err: fmt.Errorf("empty version")}
	}
	v, err := semver.NewVersion(foldExtraGroups(trimmed))
	if err != nil {
		return Version{}, &VersionCoercionError{Input: text, Err: err}
	}
	return Version{v: v}, nil
}

func foldExtraGroups(text string) string {
	m := extraGroups.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	build := strings.TrimPrefix(m[2], ".")
	prerelease := m[3]
	if i := strings.IndexByte(prerelease, '+'); i >= 0 {
		build += "." + prerelease[i+1:]
		prerelease = prerelease[:i]
	}
	return m[1] + prerelease + "+" + build
}

// MustCoerceVersion coerces text or panics.
func MustCoerceVersion(text string) Version {
	v, err := CoerceVersion(text)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical form (e.g. "1.2.0", "1.2.3-beta").
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v.v == nil
}

// Metadata returns the build metadata ("4" for "1.2.3+4").
func (v Version) Metadata() string {
	if v.v == nil {
		return ""
	}
	return v.v.Metadata()
}

// Compare returns -1, 0 or 1. The zero Version sorts before every valid version.
// A missing prerelease ranks above a present one. Build metadata only breaks
// ties, so "1.2.3+4" sorts below "1.2.3+5".
func (v Version) Compare(other Version) int {
	switch {
	case v.v == nil && other.v == nil:
		return 0
	case v.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	if c := v.v.Compare(other.v); c != 0 {
		return c
	}
	return compareMetadata(v.v.Metadata(), other.v.Metadata())
}

// compareMetadata orders dot separated identifiers the way prerelease
// identifiers are ordered. No metadata sorts first.
func compareMetadata(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareIdentifier(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

func compareIdentifier(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Equals reports whether both versions have the same precedence.
func (v Version) Equals(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// MaxVersion returns the highest of the given versions and false if vs is empty.
func MaxVersion(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if best.LessThan(v) {
			best = v
		}
	}
	return best, true
}
