// Package lockfile reads and rewrites Yarn Berry lockfiles. Entry bodies are
// kept as raw YAML nodes so fields the tool does not interpret survive a
// rewrite untouched.
package lockfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/emenda-labs/relevo/pkg/manifest"
)

// FileName is the lockfile name inside a project directory.
const FileName = "yarn.lock"

const header = "# This file is generated by running \"yarn install\" inside your project.\n" +
	"# Manual changes might be lost - proceed with caution!\n\n"

// entry is one lockfile block: the descriptors that resolve to it and the
// resolved version, plus the verbatim YAML body.
type entry struct {
	descriptors []manifest.Descriptor
	version     string
	node        *yaml.Node
}

// File is a parsed lockfile.
type File struct {
	metadata *yaml.Node
	entries  []*entry
	byKey    map[string]*entry

	present bool
	dirty   bool
}

// storeKey normalizes a descriptor for lookups. Lockfile keys always carry an
// explicit protocol while manifest ranges usually do not, so both sides are
// keyed through EffectiveProtocol.
func storeKey(d manifest.Descriptor) string {
	return d.Ident.String() + "@" + d.Range.EffectiveProtocol() + ":" + d.Range.Selector
}

// Load reads dir/yarn.lock. A missing lockfile is not an error: the returned
// file is empty and reports Present() == false.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{byKey: make(map[string]*entry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses lockfile bytes.
func Parse(data []byte) (*File, error) {
	f := &File{byKey: make(map[string]*entry), present: true}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding lockfile: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return f, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("lockfile root must be a mapping, got kind %d", root.Kind)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		if keyNode.Value == "__metadata" {
			f.metadata = valNode
			continue
		}

		e := &entry{node: valNode, version: childScalar(valNode, "version")}
		for _, rawDesc := range strings.Split(keyNode.Value, ",") {
			d, err := manifest.ParseDescriptor(strings.TrimSpace(rawDesc))
			if err != nil {
				return nil, fmt.Errorf("parsing lockfile key %q: %w", keyNode.Value, err)
			}
			e.descriptors = append(e.descriptors, d)
		}

		f.entries = append(f.entries, e)
		for _, d := range e.descriptors {
			f.byKey[storeKey(d)] = e
		}
	}

	return f, nil
}

func childScalar(node *yaml.Node, key string) string {
	if node == nil || node.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1].Value
		}
	}
	return ""
}

// Present reports whether a lockfile existed on disk.
func (f *File) Present() bool { return f.present }

// Dirty reports whether resolutions were forgotten since load.
func (f *File) Dirty() bool { return f.dirty }

// Len returns the number of entries.
func (f *File) Len() int { return len(f.entries) }

// ResolvedVersion returns the version the lockfile records for the exact
// descriptor, or false when the descriptor has no stored resolution.
func (f *File) ResolvedVersion(d manifest.Descriptor) (string, bool) {
	e, ok := f.byKey[storeKey(d)]
	if !ok {
		return "", false
	}
	return e.version, true
}

// ForgetResolution drops the stored resolution for the descriptor so the next
// install resolves it afresh. Other descriptors sharing the entry keep theirs.
// It reports whether anything was removed.
func (f *File) ForgetResolution(d manifest.Descriptor) bool {
	key := storeKey(d)
	e, ok := f.byKey[key]
	if !ok {
		return false
	}
	delete(f.byKey, key)

	kept := e.descriptors[:0]
	for _, desc := range e.descriptors {
		if storeKey(desc) != key {
			kept = append(kept, desc)
		}
	}
	e.descriptors = kept

	if len(e.descriptors) == 0 {
		for i, other := range f.entries {
			if other == e {
				f.entries = append(f.entries[:i], f.entries[i+1:]...)
				break
			}
		}
	}

	f.dirty = true
	return true
}

// Encode renders the lockfile in yarn's layout: generated-file header, the
// __metadata block, then entries sorted by key with a blank line between
// blocks.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	if f.metadata != nil {
		if err := writeBlock(&buf, "__metadata", false, f.metadata); err != nil {
			return nil, err
		}
	}

	sorted := make([]*entry, len(f.entries))
	copy(sorted, f.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return entryKey(sorted[i]) < entryKey(sorted[j])
	})

	for _, e := range sorted {
		if buf.Len() > len(header) {
			buf.WriteByte('\n')
		}
		if err := writeBlock(&buf, entryKey(e), true, e.node); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func entryKey(e *entry) string {
	parts := make([]string, len(e.descriptors))
	for i, d := range e.descriptors {
		parts[i] = d.Ident.String() + "@" + d.Range.EffectiveProtocol() + ":" + d.Range.Selector
	}
	return strings.Join(parts, ", ")
}

func writeBlock(buf *bytes.Buffer, key string, quoted bool, val *yaml.Node) error {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	if quoted {
		keyNode.Style = yaml.DoubleQuotedStyle
	}
	block := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{keyNode, val}}

	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(block); err != nil {
		return fmt.Errorf("encoding lockfile entry %q: %w", key, err)
	}
	return enc.Close()
}

// Save writes the lockfile back to dir/yarn.lock.
func (f *File) Save(dir string) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}
	return nil
}
