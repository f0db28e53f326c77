// Package changeset builds the machine-readable record of what a run changed.
// The document is a JSON object keyed by package name, in application order.
package changeset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/emenda-labs/relevo/pkg/semverx"
)

// Record describes one applied update. FromVersion is the version installed
// before the change, null when the project had no resolution for it; ranges
// are selectors with any protocol prefix stripped.
type Record struct {
	FromVersion  *string `json:"from_version"`
	FromRange    string  `json:"from_range"`
	ToVersion    string  `json:"to_version"`
	ToRange      string  `json:"to_range"`
	UpdateType   *string `json:"update_type"`
	ReleaseNotes *string `json:"release_notes"`
}

// Classify returns the update_type value for a from/to version jump, nil when
// the jump cannot be classified (unparseable versions or a range-only change).
func Classify(from, to string) *string {
	if rt, ok := semverx.ReleaseDiff(from, to); ok {
		s := string(rt)
		return &s
	}
	return nil
}

// Changeset is the ordered set of records for one run.
type Changeset struct {
	names   []string
	records map[string]Record
}

// New returns an empty changeset.
func New() *Changeset {
	return &Changeset{records: make(map[string]Record)}
}

// Add appends a record for the named package. Adding a name twice replaces
// the record but keeps its original position.
func (c *Changeset) Add(name string, rec Record) {
	if _, ok := c.records[name]; !ok {
		c.names = append(c.names, name)
	}
	c.records[name] = rec
}

// Len returns the number of recorded updates.
func (c *Changeset) Len() int {
	return len(c.names)
}

// Empty reports whether the run changed nothing.
func (c *Changeset) Empty() bool {
	return len(c.names) == 0
}

// Names returns the recorded package names in application order.
func (c *Changeset) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Get returns the record for the named package.
func (c *Changeset) Get(name string) (Record, bool) {
	rec, ok := c.records[name]
	return rec, ok
}

// MarshalJSON renders the changeset as an object with keys in application
// order.
func (c *Changeset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.records[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a changeset document keeping key order.
func (c *Changeset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading changeset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("changeset must be an object, got %v", tok)
	}

	c.names = nil
	c.records = make(map[string]Record)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading changeset key: %w", err)
		}
		name := keyTok.(string)

		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("reading record for %q: %w", name, err)
		}
		c.Add(name, rec)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading changeset: %w", err)
	}
	return nil
}

// Encode renders the changeset as two-space indented JSON with a trailing
// newline.
func (c *Changeset) Encode() ([]byte, error) {
	compact, err := c.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding changeset: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting changeset: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// WriteFile writes the encoded changeset to path.
func (c *Changeset) WriteFile(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing changeset: %w", err)
	}
	return nil
}
