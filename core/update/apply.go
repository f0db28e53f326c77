package update

import (
	"github.com/emenda-labs/relevo/core/changeset"
	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/core/rules"
	"github.com/emenda-labs/relevo/pkg/logging"
	"github.com/emenda-labs/relevo/pkg/manifest"
	"github.com/emenda-labs/relevo/pkg/semverx"
)

// Reporter observes updates as they are applied.
type Reporter interface {
	Applied(rule *rules.Rule, ident manifest.Ident, from, to manifest.Range)
}

// Applier rewrites a project's manifest from group plans, within the run cap
// and each rule's package cap.
type Applier struct {
	Manifest *manifest.Manifest
	Store    driver.ResolutionStore

	// MaxRulesApplied caps how many groups may apply updates in one run.
	MaxRulesApplied rules.Limit

	// DryRun plans and reports without touching stored resolutions. The
	// manifest is still mutated in memory; callers simply do not persist it.
	DryRun bool

	// SkipManifestOnly drops manifest-only updates for every rule,
	// regardless of each rule's own setting.
	SkipManifestOnly bool

	// Reporter receives each applied update. Optional.
	Reporter Reporter
}

// Apply walks the plans in rule order and returns the changeset of what was
// applied. Skipped candidates consume no caps: a rule only counts against
// the run cap once it actually applies an update.
func (a *Applier) Apply(plans []GroupPlan) *changeset.Changeset {
	log := logging.GetLogger("update")

	cs := changeset.New()
	groupsApplied := 0

	for _, plan := range plans {
		if a.MaxRulesApplied.Reached(groupsApplied) {
			log.Debug().
				Str("cap", a.MaxRulesApplied.String()).
				Msg("run cap reached, remaining rules not applied")
			break
		}

		appliedInGroup := 0
		for _, cand := range plan.Candidates {
			if plan.Rule.MaxPackageUpdates.Reached(appliedInGroup) {
				log.Debug().
					Str("pattern", plan.Rule.Pattern).
					Str("cap", plan.Rule.MaxPackageUpdates.String()).
					Msg("rule cap reached")
				break
			}
			if a.applyCandidate(plan, cand, cs) {
				appliedInGroup++
			}
		}

		if appliedInGroup > 0 {
			groupsApplied++
		}
	}

	return cs
}

func (a *Applier) applyCandidate(plan GroupPlan, cand Candidate, cs *changeset.Changeset) bool {
	log := logging.GetLogger("update")
	ident := cand.Current.Ident

	fromVersion, resolved := a.Store.ResolvedVersion(cand.Current)
	toVersion := minimumOf(cand.Suggested.Range.Selector)

	manifestOnly := resolved && fromVersion == toVersion
	if manifestOnly && (a.SkipManifestOnly || plan.Rule.SkipManifestOnlyChanges) {
		log.Debug().
			Str("package", ident.String()).
			Str("version", fromVersion).
			Msg("skipping manifest-only change")
		return false
	}

	if rt, ok := semverx.ReleaseDiff(fromVersion, toVersion); ok && !plan.Rule.Allow.Allows(rt) {
		log.Debug().
			Str("package", ident.String()).
			Str("releaseType", string(rt)).
			Str("pattern", plan.Rule.Pattern).
			Msg("release type not allowed by rule")
		return false
	}

	if !a.Manifest.SetRange(ident, cand.Suggested.Range) {
		return false
	}
	if !a.DryRun {
		a.Store.ForgetResolution(cand.Current)
	}

	rec := changeset.Record{
		FromRange:  cand.Current.Range.Selector,
		ToVersion:  toVersion,
		ToRange:    cand.Suggested.Range.Selector,
		UpdateType: changeset.Classify(fromVersion, toVersion),
	}
	if resolved {
		rec.FromVersion = &fromVersion
	}
	cs.Add(ident.String(), rec)

	if a.Reporter != nil {
		a.Reporter.Applied(plan.Rule, ident, cand.Current.Range, cand.Suggested.Range)
	}
	return true
}

func minimumOf(selector string) string {
	v, err := semverx.MinSatisfying(selector)
	if err != nil {
		return ""
	}
	return v.String()
}
