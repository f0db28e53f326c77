package npm

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/pkg/logging"
	"github.com/emenda-labs/relevo/pkg/manifest"
	"github.com/emenda-labs/relevo/pkg/registry"
	"github.com/emenda-labs/relevo/pkg/semverx"
)

var _ driver.Resolver = (*RegistryResolver)(nil)

// RegistryResolver suggests descriptors from an npm registry's packuments.
type RegistryResolver struct {
	client *registry.Client
}

// NewRegistryResolver creates a resolver against the registry configured in
// the environment.
func NewRegistryResolver() *RegistryResolver {
	return &RegistryResolver{client: registry.NewClient()}
}

// NewRegistryResolverWithClient creates a resolver against an explicit
// registry client.
func NewRegistryResolverWithClient(c *registry.Client) *RegistryResolver {
	return &RegistryResolver{client: c}
}

// FetchBestDescriptor fetches the packument for ident and picks the highest
// version satisfying selector, or the latest dist-tag when selector is
// driver.Latest. The suggested selector applies opts.Modifier to the picked
// version. A package with no suitable version yields (nil, nil); a failed
// lookup, unknown packages included, is an error.
func (r *RegistryResolver) FetchBestDescriptor(ctx context.Context, ident manifest.Ident, selector string, opts driver.ResolveOptions) (*manifest.Descriptor, error) {
	log := logging.GetLogger("resolver")

	doc, err := r.client.Packument(ctx, ident.String())
	if err != nil {
		return nil, err
	}

	version, err := r.pick(doc, selector)
	if err != nil {
		return nil, fmt.Errorf("picking version for %s: %w", ident, err)
	}
	if version == nil {
		return nil, nil
	}

	sel := semverx.ApplyModifier(opts.Modifier, version)
	log.Debug().
		Str("package", ident.String()).
		Str("selector", selector).
		Str("suggestion", sel).
		Msg("resolved best descriptor")

	return &manifest.Descriptor{Ident: ident, Range: manifest.ParseRange(sel)}, nil
}

func (r *RegistryResolver) pick(doc *registry.Packument, selector string) (*semver.Version, error) {
	if selector == driver.Latest {
		if tag, ok := doc.DistTag("latest"); ok {
			if v, tagErr := semverx.ParseVersion(tag); tagErr == nil {
				return v, nil
			}
		}
		// No usable latest tag; fall back to the highest stable version.
		v, ok := semverx.Highest(doc.VersionList())
		if !ok {
			return nil, nil
		}
		return v, nil
	}

	return semverx.MaxSatisfying(doc.VersionList(), selector)
}
