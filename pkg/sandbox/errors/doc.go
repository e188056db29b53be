// Package errors provides the diagnostic type raised when sandboxed code
// violates the configured policy.
//
// Every diagnostic carries a numeric code, the policy category and the
// offending name, and optionally the location of the node that raised it.
// Diagnostics chain through Cause so a handler that re-wraps an error keeps
// the root violation reachable with errors.Is and errors.As.
//
// # Code Ranges
//
// Codes are grouped by the kind of failure. Policy ranges reserve one code
// per category, offset by the category index:
//
//	1-99    misc: parse failures and disabled language features
//	100+i   definition errors (host misconfiguration, disabled declarations)
//	200+i   no policy configured for the category
//	300+i   not whitelisted
//	400+i   blacklisted
//
// # Reporting
//
// A Reporter records the most recent error and passes it to the host handler:
//
//	r := errors.NewReporter(logger)
//	r.SetHandler(func(e *errors.Error) error {
//	    if e.Code.Range() == errors.RangeBlacklist {
//	        return e // propagate
//	    }
//	    return nil // recover and keep validating
//	})
//
// Without a handler every reported error propagates.
package errors
