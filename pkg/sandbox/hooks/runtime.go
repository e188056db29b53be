package hooks

import (
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/options"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

// RuntimeConfig configures a Runtime.
type RuntimeConfig struct {
	// ID is the sandbox ID embedded in rewritten receiver expressions.
	ID string

	// Store is the policy consulted at run time. It is shared with the
	// validator that produced the rewritten program.
	Store *policy.Store

	// Options are the sandbox options the program was validated with.
	Options options.Options

	// File is the path of the executing program, returned for the file and
	// directory magic constants when they have no definition.
	File string

	// Superglobals holds the real superglobal values supplied by the host.
	Superglobals map[string]map[string]any

	Logger *slog.Logger
}

// Runtime serves the hook methods that rewritten programs call. It holds no
// locks across calls and is safe for concurrent use when its store is.
type Runtime struct {
	id           string
	store        *policy.Store
	opts         options.Options
	file         string
	superglobals map[string]map[string]any
	logger       *slog.Logger
}

// NewRuntime creates a runtime for one sandbox.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("runtime requires a sandbox ID")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("runtime %s requires a policy store", cfg.ID)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sg := make(map[string]map[string]any, len(cfg.Superglobals))
	for name, values := range cfg.Superglobals {
		sg[policy.Normalize(policy.Superglobal, name)] = values
	}

	return &Runtime{
		id:           cfg.ID,
		store:        cfg.Store,
		opts:         cfg.Options,
		file:         cfg.File,
		superglobals: sg,
		logger:       logger.With("component", "sandbox.hooks", "sandbox_id", cfg.ID),
	}, nil
}

// ID returns the sandbox ID.
func (r *Runtime) ID() string { return r.id }

// CallFunc invokes the host definition of a function. Arguments are unwrapped
// before they reach the host.
func (r *Runtime) CallFunc(name string, args ...any) (any, error) {
	if r.opts.ValidateFunctions {
		if d := r.store.Decide(policy.Function, name, ""); !d.Allowed {
			return nil, d.Err(policy.Function, name)
		}
	}
	def, ok := r.store.Definition(policy.Function, name)
	if !ok {
		return nil, sbErrors.Newf(policy.Function.Code(sbErrors.RangeDefinition), string(policy.Function), name,
			"function %s has no host definition", name)
	}
	fn, ok := callable(def)
	if !ok {
		return nil, sbErrors.Newf(policy.Function.Code(sbErrors.RangeDefinition), string(policy.Function), name,
			"definition of function %s is not callable", name)
	}

	plain := make([]any, len(args))
	for i, a := range args {
		plain[i] = Unwrap(a)
	}
	return fn(plain...)
}

// CheckFunc reports whether a function computed at run time may be called.
// It never fails; a panicking custom validator counts as a denial.
func (r *Runtime) CheckFunc(name string) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("function validator panicked", "name", name, "panic", p)
			ok = false
		}
	}()

	if r.store.IsDefined(policy.Function, name) || !r.opts.ValidateFunctions {
		return true
	}
	d := r.store.Decide(policy.Function, name, "")
	if !d.Allowed {
		r.logger.Debug("dynamic call denied", "name", name, "code", int(d.Code))
	}
	return d.Allowed
}

// Superglobal returns a copy of a superglobal filtered by the whitelisted and
// blacklisted sub-keys of its policy. A definition replaces the real values.
func (r *Runtime) Superglobal(name string) map[string]any {
	src := r.superglobals[policy.Normalize(policy.Superglobal, name)]
	if def, ok := r.store.Definition(policy.Superglobal, name); ok {
		if m, ok := def.(map[string]any); ok {
			src = m
		}
	}

	out := maps.Clone(src)
	if out == nil {
		out = map[string]any{}
	}
	if !r.opts.ValidateSuperglobals {
		return out
	}

	if r.store.HasWhitelist(policy.Superglobal) {
		if !r.store.IsWhitelisted(policy.Superglobal, name) {
			return map[string]any{}
		}
		if keep := r.store.WhitelistKeys(policy.Superglobal, name); len(keep) > 0 {
			maps.DeleteFunc(out, func(k string, _ any) bool { return !slices.Contains(keep, policy.NormalizeKey(k)) })
		}
	}
	if r.store.IsBlacklisted(policy.Superglobal, name) {
		drop := r.store.BlacklistKeys(policy.Superglobal, name)
		if len(drop) == 0 {
			return map[string]any{}
		}
		maps.DeleteFunc(out, func(k string, _ any) bool { return slices.Contains(drop, policy.NormalizeKey(k)) })
	}
	return out
}

// MagicConst resolves a magic constant. A callable definition is invoked.
// The file and directory constants fall back to the executing file.
func (r *Runtime) MagicConst(name string) (any, error) {
	if def, ok := r.store.Definition(policy.MagicConstant, name); ok {
		if fn, ok := callable(def); ok {
			return fn()
		}
		return def, nil
	}
	switch policy.Normalize(policy.MagicConstant, name) {
	case "FILE":
		return r.file, nil
	case "DIR":
		return filepath.Dir(r.file), nil
	}
	return nil, sbErrors.Newf(policy.MagicConstant.Code(sbErrors.RangeDefinition), string(policy.MagicConstant), name,
		"magic constant %s has no definition", name)
}

// Wrap turns strings that name policed functions into SandboxedString values
// so calls through them are intercepted. Other values pass through.
func (r *Runtime) Wrap(v any) any {
	s, ok := v.(string)
	if !ok || !r.policed(s) {
		return v
	}
	return &SandboxedString{Value: s, rt: r}
}

// WrapByRef is Wrap for variable arguments; the execution facility writes the
// result back to the variable.
func (r *Runtime) WrapByRef(v any) any { return r.Wrap(v) }

func (r *Runtime) policed(name string) bool {
	return r.store.IsDefined(policy.Function, name) ||
		r.store.IsWhitelisted(policy.Function, name) ||
		r.store.IsBlacklisted(policy.Function, name)
}

// known reports whether sandboxed code may observe a symbol as existing.
func (r *Runtime) known(c policy.Category, name string) bool {
	return r.store.IsDefined(c, name) || r.store.IsWhitelisted(c, name)
}

// Invoke dispatches a hook method by its table entry.
func (r *Runtime) Invoke(m Method, args ...any) (any, error) {
	h, ok := handlers[m]
	if !ok {
		return nil, fmt.Errorf("unknown hook method %q", m)
	}
	return h(r, args)
}

// SandboxedString is a string value that routes calls through the policy.
type SandboxedString struct {
	Value string
	rt    *Runtime
}

// String returns the wrapped string.
func (s *SandboxedString) String() string { return s.Value }

// Call invokes the named function through the runtime.
func (s *SandboxedString) Call(args ...any) (any, error) {
	return s.rt.CallFunc(s.Value, args...)
}

// Unwrap returns the plain value of a SandboxedString.
func Unwrap(v any) any {
	if s, ok := v.(*SandboxedString); ok {
		return s.Value
	}
	return v
}

func callable(v any) (policy.Func, bool) {
	switch fn := v.(type) {
	case policy.Func:
		return fn, fn != nil
	case func(args ...any) (any, error):
		return fn, fn != nil
	case func() any:
		return func(...any) (any, error) { return fn(), nil }, fn != nil
	}
	return nil, false
}
