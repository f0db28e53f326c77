package update

import (
	"fmt"

	"github.com/emenda-labs/relevo/pkg/manifest"
)

// ResolverError reports a failed version lookup. A single failed lookup
// aborts the whole run so a partially resolved plan is never applied.
type ResolverError struct {
	Ident manifest.Ident
	Err   error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Ident, e.Err)
}

func (e *ResolverError) Unwrap() error {
	return e.Err
}
