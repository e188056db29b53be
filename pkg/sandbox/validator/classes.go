package validator

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

var builtinTypes = map[string]bool{
	"int": true, "integer": true, "float": true, "double": true, "string": true,
	"bool": true, "boolean": true, "array": true, "callable": true, "iterable": true,
	"object": true, "mixed": true, "void": true, "null": true, "false": true,
	"true": true, "never": true,
}

// typeSeparators split a type hint into class name segments.
const typeSeparators = "|&?()"

func isRelativeClass(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return true
	}
	return false
}

// classRef validates a type reference against each category in turn and
// returns the name to emit. A host redefinition in the first category
// substitutes the name.
func (p *pass) classRef(n *ast.Node, name string, cats ...policy.Category) (string, error) {
	if hooks.IsSandboxClass(name) {
		return name, p.raise(sbErrors.New(sbErrors.CodeSandboxAccess, string(cats[0]), name,
			"sandboxed code attempted to access the sandbox class"), n)
	}
	clean := ast.CleanName(name)
	if isRelativeClass(clean) {
		return name, nil
	}

	emit := name
	if cats[0].HasDefinitions() {
		if def, ok := p.store.Definition(cats[0], clean); ok {
			if alt, ok := def.(string); ok && alt != "" {
				emit = alt
			}
		}
	}
	for _, c := range cats {
		if err := p.check(c, clean, n); err != nil {
			return name, err
		}
	}
	return emit, nil
}

func (p *pass) dynamicClass(n *ast.Node) error {
	return p.raise(sbErrors.New(sbErrors.CodeDynamicClass, string(policy.Class), "",
		"sandboxed code attempted to reference a dynamically named class"), n)
}

func (p *pass) functionDecl(n *ast.Node) (ast.Result, error) {
	code := policy.Function.Code(sbErrors.RangeDefinition)
	if err := p.require(p.opts.AllowFunctions, code, n.Name, n,
		"sandboxed code attempted to declare function %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	if n.Name == "" {
		return ast.Keep(), p.raise(sbErrors.New(code, string(policy.Function), "",
			"sandboxed code attempted to declare an unnamed function"), n)
	}
	if p.store.IsDefined(policy.Function, n.Name) {
		return ast.Keep(), p.raise(sbErrors.Newf(code, string(policy.Function), n.Name,
			"sandboxed code attempted to redeclare defined function %s", n.Name), n)
	}
	return ast.Keep(), p.check(policy.Function, n.Name, n)
}

func (p *pass) classDecl(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowClasses, policy.Class.Code(sbErrors.RangeDefinition), n.Name, n,
		"sandboxed code attempted to declare class %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	if n.Name != "" {
		if err := p.check(policy.Class, n.Name, n); err != nil {
			return ast.Keep(), err
		}
	}
	if n.Extends != "" {
		name, err := p.classRef(n, n.Extends, policy.Class)
		if err != nil {
			return ast.Keep(), err
		}
		n.Extends = name
	}
	return ast.Keep(), p.refList(n, n.Implements, policy.Interface)
}

func (p *pass) interfaceDecl(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowInterfaces, policy.Interface.Code(sbErrors.RangeDefinition), n.Name, n,
		"sandboxed code attempted to declare interface %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	if err := p.check(policy.Interface, n.Name, n); err != nil {
		return ast.Keep(), err
	}
	return ast.Keep(), p.refList(n, n.Implements, policy.Interface)
}

func (p *pass) traitDecl(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowTraits, policy.Trait.Code(sbErrors.RangeDefinition), n.Name, n,
		"sandboxed code attempted to declare trait %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	return ast.Keep(), p.check(policy.Trait, n.Name, n)
}

func (p *pass) traitUse(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.refList(n, n.Implements, policy.Trait)
}

// refList validates and substitutes a list of type names in place.
func (p *pass) refList(n *ast.Node, names []string, c policy.Category) error {
	for i, name := range names {
		emit, err := p.classRef(n, name, c)
		if err != nil {
			return err
		}
		names[i] = emit
	}
	return nil
}

func (p *pass) newExpr(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowObjects, sbErrors.CodeCreateObject, n.Class, n,
		"sandboxed code attempted to create an object"); err != nil {
		return ast.Keep(), err
	}
	switch {
	case n.HasDynamicClass():
		return ast.Keep(), p.dynamicClass(n)
	case n.Class == "":
		// Anonymous class; its declaration is checked separately.
		return ast.Keep(), nil
	}
	name, err := p.classRef(n, n.Class, policy.Class, policy.Type)
	if err != nil {
		return ast.Keep(), err
	}
	n.Class = name
	return ast.Keep(), nil
}

func (p *pass) staticAccess(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicClass() {
		return ast.Keep(), p.dynamicClass(n)
	}
	name, err := p.classRef(n, n.Class, policy.Class)
	if err != nil {
		return ast.Keep(), err
	}
	n.Class = name
	return ast.Keep(), nil
}

func (p *pass) instanceof(n *ast.Node) (ast.Result, error) {
	if n.HasDynamicClass() {
		return ast.Keep(), nil
	}
	_, err := p.classRef(n, n.Class, policy.Type)
	return ast.Keep(), err
}

func (p *pass) catch(n *ast.Node) (ast.Result, error) {
	for _, typ := range n.Types {
		if _, err := p.classRef(n, typ, policy.Type); err != nil {
			return ast.Keep(), err
		}
	}
	return ast.Keep(), nil
}

// param validates the class names of a parameter type hint, including
// nullable, union and intersection forms.
func (p *pass) param(n *ast.Node) (ast.Result, error) {
	if n.Type == "" {
		return ast.Keep(), nil
	}
	var b strings.Builder
	rest := n.Type
	for rest != "" {
		end := strings.IndexAny(rest, typeSeparators)
		if end == 0 {
			b.WriteByte(rest[0])
			rest = rest[1:]
			continue
		}
		if end < 0 {
			end = len(rest)
		}
		part := rest[:end]
		rest = rest[end:]
		if builtinTypes[strings.ToLower(part)] {
			b.WriteString(part)
			continue
		}
		emit, err := p.classRef(n, part, policy.Class)
		if err != nil {
			return ast.Keep(), err
		}
		b.WriteString(emit)
	}
	n.Type = b.String()
	return ast.Keep(), nil
}

func (p *pass) namespace(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowNamespaces, sbErrors.CodeNamespace, n.Name, n,
		"sandboxed code attempted to declare namespace %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	if n.Name != "" {
		if err := p.check(policy.Namespace, n.Name, n); err != nil {
			return ast.Keep(), err
		}
		if !p.store.IsDefined(policy.Namespace, n.Name) {
			if err := p.store.DefineNamespace(n.Name); err != nil {
				return ast.Keep(), err
			}
		}
	}
	return ast.Splice(n.Stmts...), nil
}

func (p *pass) use(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowAliases, sbErrors.CodeAlias, "", n,
		"sandboxed code attempted to use aliases"); err != nil {
		return ast.Keep(), err
	}
	for _, item := range n.Items {
		if err := p.check(policy.Alias, item.Name, item); err != nil {
			return ast.Keep(), err
		}
		local := item.Alias
		if local == "" {
			local = ast.ShortName(item.Name)
		}
		for _, c := range []policy.Category{policy.Class, policy.Type} {
			if p.store.HasBlacklist(c) {
				continue
			}
			if err := p.store.Allow(c, local); err != nil {
				return ast.Keep(), err
			}
		}
		if err := p.store.DefineAlias(item.Name, local); err != nil {
			return ast.Keep(), err
		}
	}
	return ast.Remove(), nil
}
