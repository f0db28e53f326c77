// Package semverx wraps Masterminds/semver with the npm-flavored range
// operations the update pipeline needs: minimum/maximum satisfying versions,
// release-type classification, and range-style (modifier) handling.
package semverx

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ReleaseType classifies the jump between two resolved versions.
type ReleaseType string

const (
	ReleaseMajor      ReleaseType = "major"
	ReleaseMinor      ReleaseType = "minor"
	ReleasePatch      ReleaseType = "patch"
	ReleasePrerelease ReleaseType = "prerelease"
)

// versionLiteral matches version-shaped substrings inside a range selector,
// including x/X/* placeholder segments ("1.x", "2.*").
var versionLiteral = regexp.MustCompile(`\d+(?:\.[0-9xX*]+)?(?:\.[0-9xX*]+)?(?:-[0-9A-Za-z.-]+)?`)

// ReleaseDiff compares two version strings and reports the release type of the
// jump between them. The second return is false when either version does not
// parse or the two are equal (no jump to classify).
func ReleaseDiff(from, to string) (ReleaseType, bool) {
	fv, err := semver.NewVersion(from)
	if err != nil {
		return "", false
	}
	tv, err := semver.NewVersion(to)
	if err != nil {
		return "", false
	}
	if fv.Equal(tv) {
		return "", false
	}

	switch {
	case fv.Major() != tv.Major():
		return ReleaseMajor, true
	case fv.Minor() != tv.Minor():
		return ReleaseMinor, true
	case fv.Patch() != tv.Patch():
		return ReleasePatch, true
	case fv.Prerelease() != tv.Prerelease():
		return ReleasePrerelease, true
	}

	// Build-metadata-only difference; not a version jump.
	return "", false
}

// MinSatisfying returns the lowest version that satisfies the range selector.
// The selector is the bare range text without any protocol prefix.
//
// The minimum is found by testing the versions named in the selector (plus
// their immediate patch successors, for exclusive lower bounds) against the
// parsed constraint, so ^/~ ranges, hyphen ranges, x-ranges, unions and plain
// comparators all resolve without enumerating the registry.
func MinSatisfying(selector string) (*semver.Version, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" || sel == "*" {
		return semver.New(0, 0, 0, "", ""), nil
	}

	// Fast path: an exact selector is its own minimum.
	if !strings.ContainsAny(sel, " |<>~^,") {
		bare := strings.TrimPrefix(strings.TrimPrefix(sel, "="), "v")
		if !strings.ContainsAny(bare, "xX*") {
			if v, err := semver.NewVersion(bare); err == nil {
				return v, nil
			}
		}
	}

	c, err := semver.NewConstraint(sel)
	if err != nil {
		return nil, fmt.Errorf("parsing range %q: %w", selector, err)
	}

	seen := make(map[string]bool)
	var candidates []*semver.Version
	add := func(v *semver.Version) {
		if v == nil || seen[v.String()] {
			return
		}
		seen[v.String()] = true
		candidates = append(candidates, v)
	}

	add(semver.New(0, 0, 0, "", ""))
	placeholders := strings.NewReplacer("x", "0", "X", "0", "*", "0")
	for _, lit := range versionLiteral.FindAllString(sel, -1) {
		// Placeholders live in the numeric core only; prerelease tags such
		// as "next" carry a literal x that must survive.
		core, pre, hasPre := strings.Cut(lit, "-")
		norm := placeholders.Replace(core)
		if hasPre {
			norm += "-" + pre
		}
		v, parseErr := semver.NewVersion(norm)
		if parseErr != nil {
			continue
		}
		add(v)
		next := v.IncPatch()
		add(&next)
	}

	sort.Sort(semver.Collection(candidates))
	for _, v := range candidates {
		if c.Check(v) {
			return v, nil
		}
	}

	return nil, fmt.Errorf("range %q has no satisfiable minimum", selector)
}

// MaxSatisfying returns the highest version from the list that satisfies the
// selector, or nil when none does. Unparseable list entries are ignored.
// Prerelease versions only match when the selector itself names a prerelease.
func MaxSatisfying(versions []string, selector string) (*semver.Version, error) {
	c, err := semver.NewConstraint(strings.TrimSpace(selector))
	if err != nil {
		return nil, fmt.Errorf("parsing range %q: %w", selector, err)
	}

	var best *semver.Version
	for _, raw := range versions {
		v, parseErr := semver.NewVersion(raw)
		if parseErr != nil {
			continue
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}

	return best, nil
}

// Highest returns the highest stable version from the list, falling back to
// the highest version overall when every entry is a prerelease. The second
// return is false when no entry parses.
func Highest(versions []string) (*semver.Version, bool) {
	var best, bestStable *semver.Version
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
		if v.Prerelease() == "" && (bestStable == nil || v.GreaterThan(bestStable)) {
			bestStable = v
		}
	}
	if bestStable != nil {
		return bestStable, true
	}
	if best != nil {
		return best, true
	}
	return nil, false
}

// ParseVersion parses a version string.
func ParseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", v, err)
	}
	return parsed, nil
}

// ValidRange reports whether selector parses as a semver range.
func ValidRange(selector string) bool {
	_, err := semver.NewConstraint(strings.TrimSpace(selector))
	return err == nil
}

// Modifier extracts the range style of a simple selector: "^", "~", ">=", or
// "" for exact pins and complex ranges. ">=" is only reported for a lone
// floor comparator; compound ranges collapse to exact so a rewritten range
// never loses an upper bound.
func Modifier(selector string) string {
	sel := strings.TrimSpace(selector)
	switch {
	case strings.HasPrefix(sel, "^"):
		return "^"
	case strings.HasPrefix(sel, "~"):
		return "~"
	case strings.HasPrefix(sel, ">=") && !strings.ContainsAny(sel, " ,|"):
		return ">="
	}
	return ""
}

// ApplyModifier forms a new range selector from a modifier and a version,
// e.g. ("^", 3.1.4) -> "^3.1.4". An empty modifier pins the exact version.
func ApplyModifier(modifier string, v *semver.Version) string {
	if orig := v.Original(); orig != "" {
		return modifier + orig
	}
	return modifier + v.String()
}
