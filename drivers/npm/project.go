// Package npm is the Yarn Berry ecosystem driver: it loads projects from
// disk, resolves versions against an npm registry, and refreshes installs.
package npm

import (
	"fmt"

	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/pkg/lockfile"
	"github.com/emenda-labs/relevo/pkg/manifest"
)

var _ driver.ResolutionStore = (*lockfile.File)(nil)

// Project is a project directory with its manifest and lockfile loaded.
type Project struct {
	Dir      string
	Manifest *manifest.Manifest
	Lockfile *lockfile.File
}

// LoadProject reads dir's package.json and yarn.lock. The lockfile may be
// absent; the manifest may not.
func LoadProject(dir string) (*Project, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading project in %s: %w", dir, err)
	}
	lock, err := lockfile.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading project in %s: %w", dir, err)
	}
	return &Project{Dir: dir, Manifest: m, Lockfile: lock}, nil
}

// Persist writes the manifest back to disk, and the lockfile too when
// resolutions were forgotten. A project without a lockfile never gains one
// here; installs create it.
func (p *Project) Persist() error {
	if err := p.Manifest.Save(p.Dir); err != nil {
		return err
	}
	if p.Lockfile.Present() && p.Lockfile.Dirty() {
		if err := p.Lockfile.Save(p.Dir); err != nil {
			return err
		}
	}
	return nil
}
