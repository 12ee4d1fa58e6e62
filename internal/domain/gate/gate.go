// Package gate decides whether a migration rule is in scope for an upgrade
// between two tool versions.
package gate

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/migrakit/migrakit/internal/domain"
)

// ShouldRun reports whether rule applies to an upgrade from before to after.
// Outside an upgrade, or for rules without a range, every rule is in scope.
func ShouldRun(rule domain.Rule, before, after string, isUpgrade bool) bool {
	if !isUpgrade || rule.Range == nil {
		return true
	}
	return Satisfies(before, rule.Range.Before) && Satisfies(after, rule.Range.After)
}

// Satisfies matches version against an npm-style range, counting prerelease
// versions as ordinary members of the range they fall into. A wildcard range
// matches anything, even a version that does not parse.
func Satisfies(version, rangeExpr string) bool {
	rangeExpr = strings.TrimSpace(rangeExpr)
	if isWildcard(rangeExpr) {
		return true
	}

	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint(rangeExpr)
	if err != nil {
		return false
	}
	c.IncludePrerelease = true
	return c.Check(v)
}

// Coerce extracts a bare version from a dependency specifier such as
// "^8.1.0", "~7.6.2" or "npm:storybook@8.0.0". It returns "" when nothing
// version-like is present.
func Coerce(spec string) string {
	spec = strings.TrimSpace(spec)
	if i := strings.LastIndex(spec, "@"); i >= 0 {
		spec = spec[i+1:]
	}
	spec = strings.TrimLeft(spec, "^~=>v< ")
	if spec == "" {
		return ""
	}
	v, err := semver.NewVersion(spec)
	if err != nil {
		return ""
	}
	return v.String()
}

func isWildcard(expr string) bool {
	switch expr {
	case "", "*", "x", "X":
		return true
	}
	return false
}

// IsRange reports whether expr parses as a version range.
func IsRange(expr string) bool {
	if isWildcard(strings.TrimSpace(expr)) {
		return true
	}
	_, err := semver.NewConstraint(strings.TrimSpace(expr))
	return err == nil
}

// Older reports whether version sorts before target. Unparsable input is
// never older.
func Older(version, target string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	t, err := semver.NewVersion(target)
	if err != nil {
		return false
	}
	return v.LessThan(t)
}
