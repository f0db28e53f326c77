package manifest

import (
	"fmt"
	"strings"
)

// Ident identifies a package by its optional scope and its name. The scope is
// stored without the leading "@".
type Ident struct {
	Scope string
	Name  string
}

// ParseIdent parses a package name such as "lodash" or "@babel/core".
func ParseIdent(raw string) (Ident, error) {
	if strings.HasPrefix(raw, "@") {
		scope, name, ok := strings.Cut(raw[1:], "/")
		if !ok || scope == "" || name == "" || strings.Contains(name, "/") {
			return Ident{}, fmt.Errorf("invalid scoped package name %q", raw)
		}
		return Ident{Scope: scope, Name: name}, nil
	}
	if raw == "" || strings.Contains(raw, "/") {
		return Ident{}, fmt.Errorf("invalid package name %q", raw)
	}
	return Ident{Name: raw}, nil
}

func (i Ident) String() string {
	if i.Scope != "" {
		return "@" + i.Scope + "/" + i.Name
	}
	return i.Name
}
