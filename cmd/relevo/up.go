package main

import (
	"context"
	"fmt"
	"io"

	"github.com/emenda-labs/relevo/core/changeset"
	"github.com/emenda-labs/relevo/core/cli"
	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/core/rules"
	"github.com/emenda-labs/relevo/core/update"
	"github.com/emenda-labs/relevo/drivers/npm"
	"github.com/emenda-labs/relevo/pkg/logging"
	"github.com/emenda-labs/relevo/pkg/manifest"
)

// upDeps are the capabilities the up pipeline runs against, injected so the
// command can be exercised without a live registry or package manager.
type upDeps struct {
	resolver  driver.Resolver
	installer driver.Installer
	stdout    io.Writer
	stderr    io.Writer
}

// lineReporter prints one line per applied update and counts the distinct
// rules that applied anything. Updates arrive in rule order, so a change of
// rule marks a new group.
type lineReporter struct {
	w        io.Writer
	lastRule *rules.Rule
	groups   int
}

func (r *lineReporter) Applied(rule *rules.Rule, id manifest.Ident, from, to manifest.Range) {
	if rule != r.lastRule {
		r.lastRule = rule
		r.groups++
	}
	fmt.Fprintf(r.w, "[%s] %s: %s -> %s\n", rule.Pattern, id, from.Selector, to.Selector)
}

// runUp is the whole update pipeline: load the project, group its
// dependencies under the configured rules, resolve candidates, apply them
// within the caps, then persist, emit the changeset, and reinstall.
func runUp(ctx context.Context, opts cli.UpOptions, deps upDeps) error {
	log := logging.GetLogger("relevo")

	project, err := npm.LoadProject(opts.Project)
	if err != nil {
		return err
	}

	cfg, err := loadRules(opts)
	if err != nil {
		return err
	}

	declared := project.Manifest.DeclaredDependencies()
	groups, ungrouped := cfg.GroupDependencies(declared)
	log.Info().
		Int("declared", len(declared)).
		Int("uncovered", len(ungrouped)).
		Int("rules", len(cfg.Rules)).
		Msg("grouped dependencies")

	plans, err := update.ResolveGroups(ctx, groups, deps.resolver, update.PlanOptions{
		ForceLatest: opts.Latest,
	})
	if err != nil {
		return err
	}

	// When the changeset goes to stdout, progress moves to stderr so the
	// JSON document stays parseable.
	reportW := deps.stdout
	if opts.Changeset == "-" {
		reportW = deps.stderr
	}

	reporter := &lineReporter{w: reportW}
	applier := &update.Applier{
		Manifest:         project.Manifest,
		Store:            project.Lockfile,
		MaxRulesApplied:  cfg.MaxRulesApplied,
		DryRun:           opts.DryRun,
		SkipManifestOnly: opts.SkipManifestOnly,
		Reporter:         reporter,
	}
	cs := applier.Apply(plans)

	if cs.Empty() {
		fmt.Fprintln(reportW, "Already up to date.")
		if opts.Changeset != "" {
			return writeChangeset(cs, opts.Changeset, deps.stdout)
		}
		return nil
	}

	if !opts.DryRun {
		if err := project.Persist(); err != nil {
			return err
		}
	}

	if opts.Changeset != "" {
		if err := writeChangeset(cs, opts.Changeset, deps.stdout); err != nil {
			return err
		}
	}

	if opts.DryRun {
		fmt.Fprintf(reportW, "[dry-run] Planned %d update(s); no files written.\n", cs.Len())
		return nil
	}

	if !opts.NoInstall {
		if err := deps.installer.Install(ctx, project.Dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(reportW, "Applied %d update(s) across %d group(s).\n", cs.Len(), reporter.groups)
	return nil
}

// loadRules picks the rule source: inline --rules globs win, then an explicit
// --config path, then auto-detection in the project directory.
func loadRules(opts cli.UpOptions) (*rules.Config, error) {
	log := logging.GetLogger("relevo")

	if len(opts.Rules) > 0 {
		// Inline rules are exploratory; the run cap is lifted so every
		// given glob may apply.
		cfg := &rules.Config{MaxRulesApplied: rules.UnboundedLimit()}
		for _, pattern := range opts.Rules {
			r, err := rules.NewRule(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid --rules glob %q: %w", pattern, err)
			}
			cfg.Rules = append(cfg.Rules, r)
		}
		return cfg, nil
	}

	if opts.Config != "" {
		return rules.Load(opts.Config)
	}

	cfg, path, err := rules.Discover(opts.Project)
	if err != nil {
		return nil, err
	}
	if path == "" {
		log.Debug().Msg("no config file found, using the catch-all defaults")
	} else {
		log.Debug().Str("path", path).Msg("loaded config")
	}
	return cfg, nil
}

func writeChangeset(cs *changeset.Changeset, dest string, stdout io.Writer) error {
	if dest == "-" {
		data, err := cs.Encode()
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}
	return cs.WriteFile(dest)
}
