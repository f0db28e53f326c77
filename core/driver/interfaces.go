package driver

import (
	"context"

	"github.com/emenda-labs/relevo/pkg/manifest"
)

// Latest asks a Resolver for the newest published version instead of the best
// match within an existing range.
const Latest = "latest"

// ResolveOptions tunes how a Resolver builds the descriptor it suggests.
type ResolveOptions struct {
	// Modifier is the range style ("^", "~", ">=", or "" for an exact pin)
	// to apply to the version the resolver picks.
	Modifier string
}

// Resolver suggests the descriptor a dependency should be bumped to.
type Resolver interface {
	// FetchBestDescriptor returns the descriptor for the newest version of
	// ident that satisfies selector. Pass Latest as the selector to ask for
	// the newest published version regardless of the current range.
	// A nil descriptor with a nil error means no version satisfies the
	// selector; a non-nil error means the lookup itself failed.
	FetchBestDescriptor(ctx context.Context, ident manifest.Ident, selector string, opts ResolveOptions) (*manifest.Descriptor, error)
}

// ResolutionStore exposes the resolutions a project already has pinned,
// typically backed by its lockfile.
type ResolutionStore interface {
	// ResolvedVersion returns the version currently locked for the exact
	// descriptor, or false when none is stored.
	ResolvedVersion(d manifest.Descriptor) (string, bool)

	// ForgetResolution drops the stored resolution for the descriptor so the
	// next install resolves the rewritten range afresh. It reports whether a
	// resolution was removed.
	ForgetResolution(d manifest.Descriptor) bool
}

// Installer refreshes a project's installed state after its manifest changed.
type Installer interface {
	// Install runs the package manager's install step in dir.
	Install(ctx context.Context, dir string) error
}
