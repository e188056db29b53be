// Package whitelist implements the auto-whitelist passes that run before
// validation.
//
// Trusted scans code the host marks as trusted, whitelists what it declares
// and strips its namespace and use statements. Declarations scans the
// sandboxed program and whitelists the symbols it introduces itself, gated
// by the sandbox options. Neither pass adds to a category whose blacklist is
// non-empty.
package whitelist
