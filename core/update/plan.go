// Package update turns grouped dependencies into resolved update candidates
// and applies them to a project within the configured caps.
package update

import (
	"context"

	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/core/rules"
	"github.com/emenda-labs/relevo/pkg/logging"
	"github.com/emenda-labs/relevo/pkg/manifest"
	"github.com/emenda-labs/relevo/pkg/semverx"
)

// Candidate pairs a declared dependency with the descriptor it could move to.
type Candidate struct {
	Current   manifest.Descriptor
	Suggested manifest.Descriptor
}

// GroupPlan is one rule's bucket after resolution: the candidates that would
// change the manifest if applied.
type GroupPlan struct {
	Rule       *rules.Rule
	Candidates []Candidate
}

// PlanOptions tunes resolution for a whole run.
type PlanOptions struct {
	// ForceLatest flips the run default to latest-version targeting. Rules
	// that set preserveSemVerRange themselves keep their own setting.
	ForceLatest bool
}

// ResolveGroups fetches the best descriptor for every grouped package and
// returns one plan per group, in rule order. Packages that are not plain
// semver npm dependencies are skipped. Any failed lookup aborts resolution.
func ResolveGroups(ctx context.Context, groups []rules.Group, res driver.Resolver, opts PlanOptions) ([]GroupPlan, error) {
	log := logging.GetLogger("update")

	plans := make([]GroupPlan, len(groups))
	for i, group := range groups {
		plans[i].Rule = group.Rule

		for _, dep := range group.Packages {
			cur := dep.Range

			if cur.EffectiveProtocol() != manifest.DefaultProtocol {
				log.Debug().
					Str("package", dep.Ident.String()).
					Str("range", cur.String()).
					Msg("skipping non-npm dependency")
				continue
			}
			if !semverx.ValidRange(cur.Selector) {
				log.Debug().
					Str("package", dep.Ident.String()).
					Str("range", cur.String()).
					Msg("skipping non-semver range")
				continue
			}

			selector := cur.Selector
			if !group.Rule.PreservesRange(!opts.ForceLatest) {
				selector = driver.Latest
			}

			suggested, err := res.FetchBestDescriptor(ctx, dep.Ident, selector, driver.ResolveOptions{
				Modifier: semverx.Modifier(cur.Selector),
			})
			if err != nil {
				return nil, &ResolverError{Ident: dep.Ident, Err: err}
			}
			if suggested == nil {
				log.Debug().
					Str("package", dep.Ident.String()).
					Str("range", cur.String()).
					Msg("no version satisfies the range")
				continue
			}

			// Only the suggested selector matters; protocol explicitness
			// follows the declared range.
			next := cur.WithSelector(suggested.Range.Selector)
			if next == cur {
				continue
			}

			plans[i].Candidates = append(plans[i].Candidates, Candidate{
				Current:   dep,
				Suggested: manifest.Descriptor{Ident: dep.Ident, Range: next},
			})
		}
	}

	return plans, nil
}
