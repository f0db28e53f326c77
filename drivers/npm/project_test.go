package npm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/relevo/pkg/lockfile"
	"github.com/emenda-labs/relevo/pkg/manifest"
)

const projectManifest = `{
  "name": "fixture-app",
  "dependencies": {
    "lodash": "^4.17.0"
  }
}
`

const projectLock = `__metadata:
  version: 8
  cacheKey: 10c0

"lodash@npm:^4.17.0":
  version: 4.17.20
  resolution: "lodash@npm:4.17.20"
  languageName: node
  linkType: hard
`

func writeProject(t *testing.T, withLock bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(projectManifest), 0o644))
	if withLock {
		require.NoError(t, os.WriteFile(filepath.Join(dir, lockfile.FileName), []byte(projectLock), 0o644))
	}
	return dir
}

func TestLoadProject_ReadsManifestAndLockfile(t *testing.T) {
	dir := writeProject(t, true)

	p, err := LoadProject(dir)
	require.NoError(t, err)

	assert.Equal(t, "fixture-app", p.Manifest.Name)
	assert.True(t, p.Lockfile.Present())

	d, err := manifest.ParseDescriptor("lodash@^4.17.0")
	require.NoError(t, err)
	v, ok := p.Lockfile.ResolvedVersion(d)
	require.True(t, ok)
	assert.Equal(t, "4.17.20", v)
}

func TestLoadProject_LockfileOptional(t *testing.T) {
	p, err := LoadProject(writeProject(t, false))
	require.NoError(t, err)
	assert.False(t, p.Lockfile.Present())
}

func TestLoadProject_MissingManifest(t *testing.T) {
	_, err := LoadProject(t.TempDir())
	assert.Error(t, err)
}

func TestPersist_WritesManifestAndDirtyLockfile(t *testing.T) {
	dir := writeProject(t, true)
	p, err := LoadProject(dir)
	require.NoError(t, err)

	d, err := manifest.ParseDescriptor("lodash@^4.17.0")
	require.NoError(t, err)
	p.Manifest.SetRange(manifest.Ident{Name: "lodash"}, manifest.Range{Selector: "^4.17.21"})
	p.Lockfile.ForgetResolution(d)

	require.NoError(t, p.Persist())

	reloaded, err := LoadProject(dir)
	require.NoError(t, err)
	r, ok := reloaded.Manifest.Dependencies("dependencies").Get(manifest.Ident{Name: "lodash"})
	require.True(t, ok)
	assert.Equal(t, "^4.17.21", r.String())
	assert.Equal(t, 0, reloaded.Lockfile.Len())
}

func TestPersist_NeverCreatesLockfile(t *testing.T) {
	dir := writeProject(t, false)
	p, err := LoadProject(dir)
	require.NoError(t, err)

	p.Manifest.SetRange(manifest.Ident{Name: "lodash"}, manifest.Range{Selector: "^4.18.0"})
	require.NoError(t, p.Persist())

	_, err = os.Stat(filepath.Join(dir, lockfile.FileName))
	assert.True(t, os.IsNotExist(err))
}
