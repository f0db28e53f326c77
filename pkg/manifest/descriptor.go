package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultProtocol is the protocol assumed for ranges without an explicit one.
// A bare "^1.2.3" means "npm:^1.2.3".
const DefaultProtocol = "npm"

// protocolPrefix matches an explicit range protocol such as "npm:" or
// "workspace:". The charset is deliberately narrow so git SSH URLs like
// "git@github.com:org/repo" are not mistaken for protocols.
var protocolPrefix = regexp.MustCompile(`^([a-z][a-z0-9+-]*):`)

// Range is a dependency range: a protocol plus a selector. The protocol is
// empty when the source text carried none, so a rewritten range keeps the
// original explicitness.
type Range struct {
	Protocol string
	Selector string
}

// ParseRange splits a raw range such as "npm:^1.2.3" or "workspace:*" into
// protocol and selector. Ranges without a protocol prefix parse as a bare
// selector.
func ParseRange(raw string) Range {
	if m := protocolPrefix.FindStringSubmatch(raw); m != nil {
		return Range{Protocol: m[1], Selector: raw[len(m[0]):]}
	}
	return Range{Selector: raw}
}

// EffectiveProtocol returns the protocol, substituting DefaultProtocol when
// none was explicit.
func (r Range) EffectiveProtocol() string {
	if r.Protocol == "" {
		return DefaultProtocol
	}
	return r.Protocol
}

// WithSelector returns a copy of the range carrying sel under the same
// protocol explicitness.
func (r Range) WithSelector(sel string) Range {
	return Range{Protocol: r.Protocol, Selector: sel}
}

func (r Range) String() string {
	if r.Protocol == "" {
		return r.Selector
	}
	return r.Protocol + ":" + r.Selector
}

// Descriptor pairs a package ident with the range requested for it, mirroring
// the "name@range" form used in lockfiles and registry output.
type Descriptor struct {
	Ident Ident
	Range Range
}

// ParseDescriptor parses a "name@range" string such as "@babel/core@npm:^7.0.0".
// The separator is the first "@" past the leading scope marker, so scoped
// names parse correctly.
func ParseDescriptor(raw string) (Descriptor, error) {
	if raw == "" {
		return Descriptor{}, fmt.Errorf("empty descriptor")
	}
	at := strings.Index(raw[1:], "@")
	if at < 0 {
		id, err := ParseIdent(raw)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{Ident: id}, nil
	}
	at++
	id, err := ParseIdent(raw[:at])
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Ident: id, Range: ParseRange(raw[at+1:])}, nil
}

func (d Descriptor) String() string {
	return d.Ident.String() + "@" + d.Range.String()
}
