package update

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/core/rules"
	"github.com/emenda-labs/relevo/pkg/manifest"
)

// fakeResolver serves canned suggestions keyed by "ident@selector".
type fakeResolver struct {
	best  map[string]string
	errs  map[string]error
	calls []resolveCall
}

type resolveCall struct {
	key      string
	modifier string
}

func (f *fakeResolver) FetchBestDescriptor(_ context.Context, id manifest.Ident, selector string, opts driver.ResolveOptions) (*manifest.Descriptor, error) {
	key := id.String() + "@" + selector
	f.calls = append(f.calls, resolveCall{key: key, modifier: opts.Modifier})

	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	sel, ok := f.best[key]
	if !ok {
		return nil, nil
	}
	return &manifest.Descriptor{Ident: id, Range: manifest.ParseRange(sel)}, nil
}

// fakeStore is an in-memory resolution store.
type fakeStore struct {
	resolutions map[manifest.Descriptor]string
	forgotten   []manifest.Descriptor
}

func newFakeStore() *fakeStore {
	return &fakeStore{resolutions: make(map[manifest.Descriptor]string)}
}

func (s *fakeStore) ResolvedVersion(d manifest.Descriptor) (string, bool) {
	v, ok := s.resolutions[d]
	return v, ok
}

func (s *fakeStore) ForgetResolution(d manifest.Descriptor) bool {
	if _, ok := s.resolutions[d]; !ok {
		return false
	}
	delete(s.resolutions, d)
	s.forgotten = append(s.forgotten, d)
	return true
}

// captureReporter collects applied updates as printable lines.
type captureReporter struct {
	lines []string
}

func (r *captureReporter) Applied(rule *rules.Rule, id manifest.Ident, from, to manifest.Range) {
	r.lines = append(r.lines, fmt.Sprintf("[%s] %s: %s -> %s", rule.Pattern, id, from.Selector, to.Selector))
}

func dep(t *testing.T, raw string) manifest.Descriptor {
	t.Helper()
	d, err := manifest.ParseDescriptor(raw)
	require.NoError(t, err)
	return d
}

func newRule(t *testing.T, pattern string) *rules.Rule {
	t.Helper()
	r, err := rules.NewRule(pattern)
	require.NoError(t, err)
	return r
}

func boolPtr(b bool) *bool {
	return &b
}

func candidate(t *testing.T, current, suggested string) Candidate {
	t.Helper()
	cur := dep(t, current)
	sug := dep(t, suggested)
	return Candidate{Current: cur, Suggested: sug}
}
