package values

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// AnyVersion is the wildcard constraint every version satisfies.
const AnyVersion = "*"

// ConstraintParseError indicates a malformed version constraint.
type ConstraintParseError struct {
	Input string
	Err   error
}

func (e *ConstraintParseError) Error() string {
	return fmt.Sprintf("invalid version constraint %q: %v", e.Input, e.Err)
}

func (e *ConstraintParseError) Unwrap() error {
	return e.Err
}

// Constraint is a parsed version range such as ">=1.2,<2.0" or "*".
// Immutable after parsing.
type Constraint struct {
	raw      string
	wildcard bool
	c        *semver.Constraints
	// exact is set for a single version pin carrying build metadata, which
	// semver ranges cannot tell apart ("1.2.3+4" vs "1.2.3+5").
	exact *Version
}

// compatibleRelease matches a "~=" clause and its version.
var compatibleRelease = regexp.MustCompile(`~=\s*([^,\s|]+)`)

// ParseConstraint parses a comma separated list of comparator clauses.
// An empty string is treated as the wildcard. "==" is accepted as "=".
// "~=X.Y" means ">=X.Y,<(X+1).0" and "~=X.Y.Z" means ">=X.Y.Z,<X.(Y+1).0".
func ParseConstraint(text string) (Constraint, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		raw = AnyVersion
	}

	normalized, err := expandCompatible(raw)
	if err != nil {
		return Constraint{}, &ConstraintParseError{Input: text, Err: err}
	}
	normalized = strings.ReplaceAll(normalized, "==", "=")

	var exact *Version
	if v, err := CoerceVersion(strings.TrimLeft(normalized, "= ")); err == nil && v.Metadata() != "" {
		exact = &v
		normalized = "=" + v.String()
	}

	c, err := semver.NewConstraint(normalized)
	if err != nil {
		return Constraint{}, &ConstraintParseError{Input: text, Err: err}
	}
	return Constraint{raw: raw, wildcard: raw == AnyVersion, c: c, exact: exact}, nil
}

func expandCompatible(raw string) (string, error) {
	var failed error
	out := compatibleRelease.ReplaceAllStringFunc(raw, func(clause string) string {
		text := compatibleRelease.FindStringSubmatch(clause)[1]
		groups := strings.Count(strings.SplitN(strings.SplitN(text, "-", 2)[0], "+", 2)[0], ".") + 1
		v, err := CoerceVersion(text)
		switch {
		case err != nil:
			failed = err
			return clause
		case groups < 2:
			failed = fmt.Errorf("%q needs at least a major and minor version", clause)
			return clause
		case groups == 2:
			return fmt.Sprintf(">=%s, <%d.0.0", v, v.v.Major()+1)
		default:
			return fmt.Sprintf(">=%s, <%d.%d.0", v, v.v.Major(), v.v.Minor()+1)
		}
	})
	return out, failed
}

// MustParseConstraint parses text or panics.
func MustParseConstraint(text string) Constraint {
	c, err := ParseConstraint(text)
	if err != nil {
		panic(err)
	}
	return c
}

// ExactConstraint returns a constraint matching only v.
func ExactConstraint(v Version) Constraint {
	return MustParseConstraint(v.String())
}

// Contains reports whether v satisfies every clause.
// The wildcard matches every valid version, prereleases included. Otherwise
// prerelease versions only match constraints that name a prerelease themselves.
func (c Constraint) Contains(v Version) bool {
	if c.c == nil || v.v == nil {
		return false
	}
	if c.wildcard {
		return true
	}
	if c.exact != nil {
		return c.exact.Equals(v)
	}
	return c.c.Check(v.v)
}

// String returns the constraint as written.
func (c Constraint) String() string {
	return c.raw
}

// IsZero reports whether c was never parsed.
func (c Constraint) IsZero() bool {
	return c.c == nil
}
