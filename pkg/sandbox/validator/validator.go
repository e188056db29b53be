// Package validator checks a syntax tree against the sandbox policy and
// rewrites permitted but sensitive nodes into calls against the sandbox
// hooks.
//
// Validation is a single post-order pass. Each node is checked first and
// rewritten only if it passes, or if the host's error handler recovers from
// the violation. A violation that is not recovered aborts the pass.
package validator

import (
	"fmt"

	"mercator-hq/bastion/pkg/sandbox/ast"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/options"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

// Recorder observes violations. It is satisfied by the validation metrics.
type Recorder interface {
	RecordViolation(code sbErrors.Code, category string)
}

// Config configures a Validator.
type Config struct {
	Store     *policy.Store
	Options   *options.Options
	Reporter  *sbErrors.Reporter
	SandboxID string   // embedded in hook receiver expressions
	Recorder  Recorder // optional
}

// Validator validates and rewrites syntax trees.
type Validator struct {
	store    *policy.Store
	opts     *options.Options
	reporter *sbErrors.Reporter
	id       string
	recorder Recorder
}

// New creates a validator.
func New(cfg Config) (*Validator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("validator requires a policy store")
	}
	if cfg.Options == nil {
		return nil, fmt.Errorf("validator requires options")
	}
	if cfg.SandboxID == "" {
		return nil, fmt.Errorf("validator requires a sandbox ID")
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = sbErrors.NewReporter(nil)
	}
	return &Validator{
		store:    cfg.Store,
		opts:     cfg.Options,
		reporter: reporter,
		id:       cfg.SandboxID,
		recorder: cfg.Recorder,
	}, nil
}

// Validate checks tree and returns its rewritten copy. The input tree is not
// modified. Namespace and alias declarations are registered in the store as
// they are found.
func (v *Validator) Validate(tree *ast.Node) (*ast.Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("validator: nil syntax tree")
	}
	out, err := ast.Transform(ast.Clone(tree), &pass{Validator: v})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = &ast.Node{Kind: ast.KindFile, Location: tree.Location}
	}
	return out, nil
}

// rule validates and optionally rewrites one node kind.
type rule func(p *pass, n *ast.Node) (ast.Result, error)

// rules maps node kinds to their checks. Kinds without an entry are only
// subject to the keyword, operator and primitive tables.
var rules = map[ast.Kind]rule{
	ast.KindFuncCall:   (*pass).funcCall,
	ast.KindShellExec:  (*pass).shellExec,
	ast.KindInclude:    (*pass).include,
	ast.KindArg:        (*pass).arg,
	ast.KindInlineHTML: (*pass).inlineHTML,

	ast.KindVariable:   (*pass).variable,
	ast.KindGlobal:     (*pass).global,
	ast.KindStatic:     (*pass).static,
	ast.KindStaticVar:  (*pass).staticVar,
	ast.KindConst:      (*pass).constDecl,
	ast.KindConstFetch: (*pass).constFetch,
	ast.KindMagicConst: (*pass).magicConst,

	ast.KindFunction:            (*pass).functionDecl,
	ast.KindClass:               (*pass).classDecl,
	ast.KindInterface:           (*pass).interfaceDecl,
	ast.KindTrait:               (*pass).traitDecl,
	ast.KindTraitUse:            (*pass).traitUse,
	ast.KindNew:                 (*pass).newExpr,
	ast.KindStaticCall:          (*pass).staticAccess,
	ast.KindStaticPropertyFetch: (*pass).staticAccess,
	ast.KindClassConstFetch:     (*pass).staticAccess,
	ast.KindInstanceof:          (*pass).instanceof,
	ast.KindCatch:               (*pass).catch,
	ast.KindParam:               (*pass).param,
	ast.KindNamespace:           (*pass).namespace,
	ast.KindUse:                 (*pass).use,

	ast.KindCast:          (*pass).cast,
	ast.KindClosure:       (*pass).closure,
	ast.KindYield:         (*pass).generator,
	ast.KindYieldFrom:     (*pass).generator,
	ast.KindErrorSuppress: (*pass).errorSuppress,
	ast.KindAssignRef:     (*pass).assignRef,
	ast.KindHaltCompiler:  (*pass).halt,
}

// pass is the state of one Validate call.
type pass struct {
	*Validator
}

func (p *pass) Enter(*ast.Node) error { return nil }

func (p *pass) Leave(n *ast.Node) (ast.Result, error) {
	if kw := keywordOf(n); kw != "" {
		if err := p.check(policy.Keyword, kw, n); err != nil {
			return ast.Keep(), err
		}
	}
	if op := operatorOf(n); op != "" {
		if err := p.check(policy.Operator, op, n); err != nil {
			return ast.Keep(), err
		}
	}
	if prim := primitiveOf(n); prim != "" {
		if err := p.check(policy.Primitive, prim, n); err != nil {
			return ast.Keep(), err
		}
	}
	if r, ok := rules[n.Kind]; ok {
		return r(p, n)
	}
	return ast.Keep(), nil
}

// raise reports a violation at n. It returns nil when the handler recovers.
func (p *pass) raise(err *sbErrors.Error, n *ast.Node) error {
	err = err.At(n.Location)
	if p.recorder != nil {
		p.recorder.RecordViolation(err.Code, err.Category)
	}
	return p.reporter.Report(err)
}

// check decides name in c when c is validated.
func (p *pass) check(c policy.Category, name string, n *ast.Node) error {
	return p.checkKey(c, name, "", n)
}

func (p *pass) checkKey(c policy.Category, name, key string, n *ast.Node) error {
	if !p.opts.Validates(c) {
		return nil
	}
	if d := p.store.Decide(c, name, key); !d.Allowed {
		return p.raise(d.Err(c, name), n)
	}
	return nil
}

// require raises code unless the feature is enabled.
func (p *pass) require(enabled bool, code sbErrors.Code, name string, n *ast.Node, format string, args ...any) error {
	if enabled {
		return nil
	}
	return p.raise(sbErrors.Newf(code, "", name, format, args...), n)
}

// hook builds a call of m on this sandbox's runtime.
func (p *pass) hook(m hooks.Method, loc ast.Location, args ...*ast.Node) *ast.Node {
	return hooks.Call(p.id, m, args, loc)
}
