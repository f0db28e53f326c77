// Package rules holds the update rule configuration: which packages a rule
// covers, how many updates it may apply, and which release types it allows.
package rules

import (
	"fmt"
	"strconv"

	"github.com/gobwas/glob"

	"github.com/emenda-labs/relevo/pkg/manifest"
	"github.com/emenda-labs/relevo/pkg/semverx"
)

// CatchAllPattern matches every package. It is the pattern of the implicit
// rule used when no configuration exists.
const CatchAllPattern = "*"

// Limit is an update cap that is either bounded at a value or unbounded.
// In configuration an unbounded cap is written as the literal false.
type Limit struct {
	value   int
	bounded bool
}

// BoundedLimit returns a cap of n.
func BoundedLimit(n int) Limit {
	return Limit{value: n, bounded: true}
}

// UnboundedLimit returns a cap that is never reached.
func UnboundedLimit() Limit {
	return Limit{}
}

// Reached reports whether count has exhausted the cap.
func (l Limit) Reached(count int) bool {
	return l.bounded && count >= l.value
}

// IsBounded reports whether the cap has a value.
func (l Limit) IsBounded() bool {
	return l.bounded
}

func (l Limit) String() string {
	if !l.bounded {
		return "unbounded"
	}
	return strconv.Itoa(l.value)
}

// AllowSet gates which release types a rule may apply. Only major, minor,
// and patch are gated; prerelease jumps and bumps that cannot be classified
// always pass.
type AllowSet struct {
	Major bool
	Minor bool
	Patch bool
}

// AllowAll permits every release type, the default for rules without an
// allow block.
func AllowAll() AllowSet {
	return AllowSet{Major: true, Minor: true, Patch: true}
}

// Allows reports whether the release type passes the gate.
func (a AllowSet) Allows(rt semverx.ReleaseType) bool {
	switch rt {
	case semverx.ReleaseMajor:
		return a.Major
	case semverx.ReleaseMinor:
		return a.Minor
	case semverx.ReleasePatch:
		return a.Patch
	}
	return true
}

// Empty reports whether every gated category is disallowed. Such a set is
// rejected at load time.
func (a AllowSet) Empty() bool {
	return !a.Major && !a.Minor && !a.Patch
}

// Rule covers the packages matching its pattern. Rule order matters: a
// package belongs to the first rule that matches it.
type Rule struct {
	// Pattern is a glob matched against the full package name, scope
	// included ("@babel/*", "eslint-*", "*").
	Pattern string

	// MaxPackageUpdates caps how many packages this rule may update in one
	// run.
	MaxPackageUpdates Limit

	// PreserveSemVerRange keeps updates inside the declared range; false
	// retargets packages at their latest published version. Nil means the
	// rule follows the run default.
	PreserveSemVerRange *bool

	// SkipManifestOnlyChanges drops updates that would rewrite the manifest
	// range without changing the locked version.
	SkipManifestOnlyChanges bool

	// Allow gates which release types the rule may apply.
	Allow AllowSet

	matcher glob.Glob
}

// NewRule builds a rule with compiled pattern and the defaults applied:
// unbounded updates, manifest-only changes kept, every release type allowed.
func NewRule(pattern string) (*Rule, error) {
	// Compiled without separators so "*" crosses the "/" of scoped names.
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &Rule{
		Pattern:           pattern,
		MaxPackageUpdates: UnboundedLimit(),
		Allow:             AllowAll(),
		matcher:           matcher,
	}, nil
}

// Matches reports whether the rule covers the package.
func (r *Rule) Matches(id manifest.Ident) bool {
	return r.matcher.Match(id.String())
}

// PreservesRange reports whether the rule keeps updates inside the declared
// range, falling back to runDefault when the rule does not set it.
func (r *Rule) PreservesRange(runDefault bool) bool {
	if r.PreserveSemVerRange != nil {
		return *r.PreserveSemVerRange
	}
	return runDefault
}

// Config is a full update configuration: the global rule cap plus the ordered
// rule list.
type Config struct {
	// MaxRulesApplied caps how many rules may apply updates in one run.
	MaxRulesApplied Limit

	// Rules in declaration order.
	Rules []*Rule
}

// Default returns the zero-configuration setup: one catch-all rule with every
// default, and at most one rule applied per run.
func Default() *Config {
	rule, err := NewRule(CatchAllPattern)
	if err != nil {
		// The catch-all pattern is a constant; it always compiles.
		panic(err)
	}
	return &Config{
		MaxRulesApplied: BoundedLimit(1),
		Rules:           []*Rule{rule},
	}
}

// Group is the set of declared dependencies covered by one rule.
type Group struct {
	Rule     *Rule
	Packages []manifest.Descriptor
}

// GroupDependencies assigns each descriptor to the first rule whose pattern
// matches it. Groups come back in rule order, empty ones included so callers
// see which rules matched nothing. The second return lists descriptors no
// rule covers.
func (c *Config) GroupDependencies(deps []manifest.Descriptor) ([]Group, []manifest.Descriptor) {
	groups := make([]Group, len(c.Rules))
	for i, r := range c.Rules {
		groups[i].Rule = r
	}

	var ungrouped []manifest.Descriptor
	for _, d := range deps {
		assigned := false
		for i, r := range c.Rules {
			if r.Matches(d.Ident) {
				groups[i].Packages = append(groups[i].Packages, d)
				assigned = true
				break // first match wins
			}
		}
		if !assigned {
			ungrouped = append(ungrouped, d)
		}
	}

	return groups, ungrouped
}
