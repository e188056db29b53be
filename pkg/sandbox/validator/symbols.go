package validator

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

var superglobals = map[string]bool{
	"GLOBALS":  true,
	"_SERVER":  true,
	"_GET":     true,
	"_POST":    true,
	"_FILES":   true,
	"_COOKIE":  true,
	"_SESSION": true,
	"_REQUEST": true,
	"_ENV":     true,
}

func (p *pass) variable(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicName() {
		return ast.Keep(), p.raise(sbErrors.New(sbErrors.CodeDynamicVar, string(policy.Variable), "",
			"sandboxed code attempted to reference a dynamically named variable"), n)
	}
	if n.Name == "this" {
		return ast.Keep(), nil
	}

	if superglobals[n.Name] {
		if err := p.check(policy.Superglobal, n.Name, n); err != nil {
			return ast.Keep(), err
		}
		if p.opts.OverwriteSuperglobals {
			return ast.Replace(p.hook(hooks.GetSuperglobal, n.Location,
				ast.NewArg(ast.NewString(n.Name, n.Location)))), nil
		}
		return ast.Keep(), nil
	}
	return ast.Keep(), p.check(policy.Variable, n.Name, n)
}

func (p *pass) global(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowGlobals, sbErrors.CodeGlobals, "", n,
		"sandboxed code attempted to use global variables"); err != nil {
		return ast.Keep(), err
	}
	for _, item := range n.Items {
		if item.Kind != ast.KindVariable || item.HasDynamicName() {
			if err := p.raise(sbErrors.New(sbErrors.CodeGlobals, string(policy.Global), "",
				"sandboxed code attempted to import a dynamically named global"), item); err != nil {
				return ast.Keep(), err
			}
			continue
		}
		if err := p.check(policy.Global, item.Name, item); err != nil {
			return ast.Keep(), err
		}
	}
	return ast.Keep(), nil
}

func (p *pass) static(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowStaticVariables, sbErrors.CodeStaticVar, "", n,
		"sandboxed code attempted to declare static variables")
}

// staticVar leaves default values untouched, including object construction.
func (p *pass) staticVar(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicName() || n.Name == "" {
		return ast.Keep(), p.raise(sbErrors.New(sbErrors.CodeDynamicStaticVar, string(policy.Variable), "",
			"sandboxed code attempted to declare a dynamically named static variable"), n)
	}
	return ast.Keep(), nil
}

func (p *pass) constDecl(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.raise(sbErrors.New(sbErrors.CodeGlobalConst, string(policy.Constant), n.Name,
		"sandboxed code attempted to declare a constant outside define()"), n)
}

func (p *pass) constFetch(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicName() {
		return ast.Keep(), p.raise(sbErrors.New(sbErrors.CodeDynamicConst, string(policy.Constant), "",
			"sandboxed code attempted to reference a dynamically named constant"), n)
	}
	if literalPrimitive(n.Name) != "" {
		// Checked through the primitive table.
		return ast.Keep(), nil
	}
	return ast.Keep(), p.check(policy.Constant, ast.CleanName(n.Name), n)
}

func (p *pass) magicConst(n *ast.Node) (ast.Result, error) {
	if err := p.check(policy.MagicConstant, n.Name, n); err != nil {
		return ast.Keep(), err
	}
	switch {
	case p.store.IsDefined(policy.MagicConstant, n.Name):
	case isPathConstant(n.Name):
	default:
		return ast.Keep(), nil
	}
	return ast.Replace(p.hook(hooks.GetMagicConst, n.Location,
		ast.NewArg(ast.NewString(n.Name, n.Location)))), nil
}

// isPathConstant reports whether a magic constant names the executing file
// or its directory.
func isPathConstant(name string) bool {
	switch policy.Normalize(policy.MagicConstant, name) {
	case "FILE", "DIR":
		return true
	}
	return false
}

// literalPrimitive maps the true, false and null constants to their primitive.
func literalPrimitive(name string) string {
	switch strings.ToLower(ast.CleanName(name)) {
	case "true", "false":
		return "bool"
	case "null":
		return "null"
	}
	return ""
}
