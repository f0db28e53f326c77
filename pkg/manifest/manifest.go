// Package manifest models a package.json file. Parsing keeps the declaration
// order of top-level fields and of every dependency block, so an edited
// manifest round-trips with only the changed ranges differing.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the manifest file name inside a project directory.
const FileName = "package.json"

// DependencyScopes lists the manifest blocks whose entries are considered
// declared dependencies, in precedence order: when an ident appears in
// several scopes its "dependencies" entry defines the current range.
var DependencyScopes = []string{"dependencies", "devDependencies"}

// DependencyMap holds one dependency block with its declaration order.
type DependencyMap struct {
	idents []Ident
	ranges map[Ident]Range
}

// NewDependencyMap returns an empty dependency block.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{ranges: make(map[Ident]Range)}
}

func (m *DependencyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.idents)
}

// Get returns the range declared for ident.
func (m *DependencyMap) Get(id Ident) (Range, bool) {
	if m == nil {
		return Range{}, false
	}
	r, ok := m.ranges[id]
	return r, ok
}

// Set declares or replaces the range for ident. A new ident is appended, an
// existing one keeps its position.
func (m *DependencyMap) Set(id Ident, r Range) {
	if _, ok := m.ranges[id]; !ok {
		m.idents = append(m.idents, id)
	}
	m.ranges[id] = r
}

// Idents returns the declared idents in order.
func (m *DependencyMap) Idents() []Ident {
	if m == nil {
		return nil
	}
	out := make([]Ident, len(m.idents))
	copy(out, m.idents)
	return out
}

// Manifest is a parsed package.json. Fields the tool does not interpret are
// carried through verbatim.
type Manifest struct {
	Name string

	fields []string
	raw    map[string]json.RawMessage
	deps   map[string]*DependencyMap
}

// Load reads and parses the manifest at dir/package.json.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Parse parses manifest bytes, keeping field and dependency order.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("manifest root must be an object, got %v", tok)
	}

	m := &Manifest{
		raw:  make(map[string]json.RawMessage),
		deps: make(map[string]*DependencyMap),
	}
	seen := make(map[string]bool)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading manifest key: %w", err)
		}
		key := keyTok.(string)
		if !seen[key] {
			seen[key] = true
			m.fields = append(m.fields, key)
		}

		if isDependencyScope(key) {
			block, err := parseDependencyBlock(dec)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", key, err)
			}
			m.deps[key] = block
			continue
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("reading field %q: %w", key, err)
		}
		m.raw[key] = raw
		if key == "name" {
			// Best effort; a non-string name is preserved but not interpreted.
			_ = json.Unmarshal(raw, &m.Name)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return m, nil
}

func parseDependencyBlock(dec *json.Decoder) (*DependencyMap, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("dependency block must be an object, got %v", tok)
	}

	block := NewDependencyMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		rawRange, ok := valTok.(string)
		if !ok {
			return nil, fmt.Errorf("range for %q must be a string, got %v", name, valTok)
		}

		id, err := ParseIdent(name)
		if err != nil {
			return nil, err
		}
		block.Set(id, ParseRange(rawRange))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return block, nil
}

func isDependencyScope(key string) bool {
	for _, scope := range DependencyScopes {
		if key == scope {
			return true
		}
	}
	return false
}

// Scopes returns the dependency scopes present in the manifest, in the
// precedence order of DependencyScopes.
func (m *Manifest) Scopes() []string {
	var out []string
	for _, scope := range DependencyScopes {
		if _, ok := m.deps[scope]; ok {
			out = append(out, scope)
		}
	}
	return out
}

// Dependencies returns the named dependency block, or nil when the manifest
// has none.
func (m *Manifest) Dependencies(scope string) *DependencyMap {
	return m.deps[scope]
}

// ScopesWith returns the scopes that declare the ident, in precedence order.
func (m *Manifest) ScopesWith(id Ident) []string {
	var out []string
	for _, scope := range DependencyScopes {
		if block := m.deps[scope]; block != nil {
			if _, ok := block.Get(id); ok {
				out = append(out, scope)
			}
		}
	}
	return out
}

// DeclaredDependencies returns one descriptor per distinct ident across all
// dependency scopes. When an ident appears in several scopes the first scope
// in DependencyScopes order wins, matching how package managers treat a
// package that is both a runtime and a dev dependency.
func (m *Manifest) DeclaredDependencies() []Descriptor {
	seen := make(map[Ident]bool)
	var out []Descriptor
	for _, scope := range DependencyScopes {
		block := m.deps[scope]
		if block == nil {
			continue
		}
		for _, id := range block.idents {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Descriptor{Ident: id, Range: block.ranges[id]})
		}
	}
	return out
}

// SetRange rewrites the range for ident in every scope where it is declared
// and reports whether any scope changed.
func (m *Manifest) SetRange(id Ident, r Range) bool {
	changed := false
	for _, scope := range DependencyScopes {
		block := m.deps[scope]
		if block == nil {
			continue
		}
		if cur, ok := block.Get(id); ok && cur != r {
			block.Set(id, r)
			changed = true
		}
	}
	return changed
}

// Encode renders the manifest as two-space indented JSON with a trailing
// newline, fields in their original order.
func (m *Manifest) Encode() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range m.fields {
		if i > 0 {
			compact.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encoding field name %q: %w", key, err)
		}
		compact.Write(keyJSON)
		compact.WriteByte(':')

		if block, ok := m.deps[key]; ok {
			if err := encodeDependencyBlock(&compact, block); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", key, err)
			}
			continue
		}
		compact.Write(m.raw[key])
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("formatting manifest: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeDependencyBlock(buf *bytes.Buffer, block *DependencyMap) error {
	buf.WriteByte('{')
	for i, id := range block.idents {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(id.String())
		if err != nil {
			return err
		}
		valJSON, err := json.Marshal(block.ranges[id].String())
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return nil
}

// Save writes the manifest back to dir/package.json.
func (m *Manifest) Save(dir string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
