package policy

import (
	"fmt"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

// Decision is the outcome of a policy lookup. Denials stay values until the
// validator converts them into diagnostics with Err.
type Decision struct {
	Allowed bool
	Code    sbErrors.Code // zero when allowed
	Reason  string
}

var allowed = Decision{Allowed: true}

func deny(code sbErrors.Code, format string, args ...any) Decision {
	return Decision{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Err converts a denial into a diagnostic. It returns nil for an allowed decision.
func (d Decision) Err(c Category, name string) *sbErrors.Error {
	if d.Allowed {
		return nil
	}
	return sbErrors.New(d.Code, string(c), name, d.Reason)
}

// Context is passed to custom validators.
type Context struct {
	Category Category
	Raw      string // name as written in the source
	Key      string // normalized sub-key, empty when not applicable
}

// ValidatorFunc is a custom per-category check. Its result replaces the
// whitelist and blacklist decision for the category.
type ValidatorFunc func(name string, ctx Context) bool
