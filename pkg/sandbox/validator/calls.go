package validator

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

func (p *pass) funcCall(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicName() {
		return p.dynamicCall(n)
	}

	name := ast.CleanName(n.Name)
	if err := p.check(policy.Function, name, n); err != nil {
		return ast.Keep(), err
	}
	lower := policy.Normalize(policy.Function, name)

	if lower == "define" {
		if err := p.require(p.opts.AllowConstants, policy.Constant.Code(sbErrors.RangeDefinition), name, n,
			"sandboxed code attempted to define a constant"); err != nil {
			return ast.Keep(), err
		}
	}

	if p.store.IsDefined(policy.Function, name) {
		args := append([]*ast.Node{ast.NewArg(ast.NewString(name, n.Location))}, n.Args...)
		return ast.Replace(p.hook(hooks.CallFunc, n.Location, args...)), nil
	}

	proxy, ok := hooks.Lookup(lower)
	if !ok || !p.overwrites(proxy.Group) {
		return ast.Keep(), nil
	}
	args := n.Args
	if proxy.Group == hooks.GroupArgs || proxy.Method == hooks.GetDefinedVars {
		// The runtime cannot see the caller's scope; pass it the native result.
		native := ast.NewFuncCall(lower, nil, n.Location)
		args = append([]*ast.Node{ast.NewArg(native)}, n.Args...)
	}
	return ast.Replace(p.hook(proxy.Method, n.Location, args...)), nil
}

func (p *pass) overwrites(g hooks.Group) bool {
	switch g {
	case hooks.GroupArgs:
		return p.opts.OverwriteFuncGetArgs
	case hooks.GroupString:
		return p.opts.OverwriteSandboxedStringFuncs
	case hooks.GroupIntrospection:
		return p.opts.OverwriteDefinedFuncs
	}
	return false
}

// dynamicCall guards a call through a computed name: the name is checked at
// run time and the call yields null when the check fails.
func (p *pass) dynamicCall(n *ast.Node) (ast.Result, error) {
	if !p.opts.ValidateFunctions {
		return ast.Keep(), nil
	}
	guard := p.hook(hooks.CheckFunc, n.Location, ast.NewArg(ast.Clone(n.NameExpr)))
	return ast.Replace(&ast.Node{
		Kind:     ast.KindTernary,
		Expr:     guard,
		Left:     n,
		Right:    ast.NewConstFetch("null", n.Location),
		Location: n.Location,
	}), nil
}

const shellExecFunc = "shell_exec"

func (p *pass) shellExec(n *ast.Node) (ast.Result, error) {
	if p.store.IsDefined(policy.Function, shellExecFunc) {
		cmd := &ast.Node{Kind: ast.KindInterpolated, Items: n.Items, Location: n.Location}
		return ast.Replace(p.hook(hooks.CallFunc, n.Location,
			ast.NewArg(ast.NewString(shellExecFunc, n.Location)), ast.NewArg(cmd))), nil
	}

	if p.opts.ValidateFunctions {
		var denial *sbErrors.Error
		switch {
		case p.store.HasWhitelist(policy.Function) && !p.store.IsWhitelisted(policy.Function, shellExecFunc):
			denial = sbErrors.Newf(policy.Function.Code(sbErrors.RangeWhitelist), string(policy.Function), shellExecFunc,
				"sandboxed code attempted to use backticks without whitelisting %s", shellExecFunc)
		case p.store.IsBlacklisted(policy.Function, shellExecFunc):
			denial = sbErrors.Newf(policy.Function.Code(sbErrors.RangeBlacklist), string(policy.Function), shellExecFunc,
				"sandboxed code attempted to use backticks while %s is blacklisted", shellExecFunc)
		}
		if denial != nil {
			if err := p.raise(denial, n); err != nil {
				return ast.Keep(), err
			}
		}
	}

	return ast.Keep(), p.require(p.opts.AllowBackticks, sbErrors.CodeBackticks, shellExecFunc, n,
		"sandboxed code attempted to use backticks")
}

func (p *pass) include(n *ast.Node) (ast.Result, error) {
	variant := strings.ToLower(n.Name)
	if variant == "" {
		variant = "include"
	}
	if err := p.require(p.opts.AllowIncludes, sbErrors.CodeInclude, variant, n,
		"sandboxed code attempted to %s files", variant); err != nil {
		return ast.Keep(), err
	}
	if p.store.IsDefined(policy.Function, variant) {
		return ast.Replace(p.hook(hooks.CallFunc, n.Location,
			ast.NewArg(ast.NewString(variant, n.Location)), ast.NewArg(n.Expr))), nil
	}
	return ast.Keep(), nil
}

// arg wraps call arguments so callable strings become sandboxed values.
func (p *pass) arg(n *ast.Node) (ast.Result, error) {
	if !p.opts.SandboxStrings || n.Expr == nil || n.Unpack || n.ByRef {
		return ast.Keep(), nil
	}
	switch n.Expr.Kind {
	case ast.KindInt, ast.KindFloat, ast.KindArray, ast.KindClosure:
		return ast.Keep(), nil
	}
	m := hooks.Wrap
	if n.Expr.Kind == ast.KindVariable {
		m = hooks.WrapByRef
	}
	n.Expr = p.hook(m, n.Location, ast.NewArg(n.Expr))
	return ast.Keep(), nil
}

func (p *pass) inlineHTML(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowEscaping, sbErrors.CodeEscape, "", n,
		"sandboxed code attempted to escape to inline output")
}
