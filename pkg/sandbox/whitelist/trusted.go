package whitelist

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

// Trusted whitelists the functions, classes, interfaces, traits, constants,
// globals and top-level variables that tree declares. Namespace statements
// are registered as definitions and replaced by their bodies; use
// statements are registered as aliases and removed. It returns the
// rewritten tree.
func Trusted(store *policy.Store, tree *ast.Node) (*ast.Node, error) {
	return ast.Transform(tree, &trusted{store: store})
}

type trusted struct {
	store *policy.Store
	depth int // nesting of function bodies
}

func (v *trusted) Enter(n *ast.Node) error {
	switch n.Kind {
	case ast.KindFunction, ast.KindMethod, ast.KindClosure:
		v.depth++
	}
	return nil
}

func (v *trusted) Leave(n *ast.Node) (ast.Result, error) {
	switch n.Kind {
	case ast.KindFunction:
		v.depth--
		return ast.Keep(), allow(v.store, policy.Function, n.Name)
	case ast.KindMethod, ast.KindClosure:
		v.depth--
	case ast.KindClass:
		if n.Name != "" {
			return ast.Keep(), allow(v.store, policy.Class, n.Name)
		}
	case ast.KindInterface:
		return ast.Keep(), allow(v.store, policy.Interface, n.Name)
	case ast.KindTrait:
		return ast.Keep(), allow(v.store, policy.Trait, n.Name)
	case ast.KindFuncCall:
		if name, ok := definedConstant(n); ok {
			return ast.Keep(), allow(v.store, policy.Constant, name)
		}
	case ast.KindGlobal:
		for _, item := range n.Items {
			if item.Kind == ast.KindVariable && !item.HasDynamicName() {
				if err := allow(v.store, policy.Global, item.Name); err != nil {
					return ast.Keep(), err
				}
			}
		}
	case ast.KindVariable:
		if v.depth == 0 && !n.HasDynamicName() {
			return ast.Keep(), allow(v.store, policy.Variable, n.Name)
		}
	case ast.KindNamespace:
		if n.Name != "" && !v.store.IsDefined(policy.Namespace, n.Name) {
			if err := v.store.DefineNamespace(n.Name); err != nil {
				return ast.Keep(), err
			}
		}
		return ast.Splice(n.Stmts...), nil
	case ast.KindUse:
		for _, item := range n.Items {
			if err := v.store.DefineAlias(item.Name, aliasOf(item)); err != nil {
				return ast.Keep(), err
			}
		}
		return ast.Remove(), nil
	}
	return ast.Keep(), nil
}

// allow whitelists name in c unless c has a blacklist.
func allow(store *policy.Store, c policy.Category, name string) error {
	if name == "" || store.HasBlacklist(c) {
		return nil
	}
	return store.Allow(c, name)
}

// definedConstant returns the constant name of a define('NAME', ...) call.
func definedConstant(n *ast.Node) (string, bool) {
	if n.HasDynamicName() || !strings.EqualFold(ast.CleanName(n.Name), "define") || len(n.Args) == 0 {
		return "", false
	}
	first := n.Args[0].Expr
	if first == nil || first.Kind != ast.KindString || first.Value == "" {
		return "", false
	}
	return first.Value, true
}

// aliasOf returns the local name a use item introduces.
func aliasOf(item *ast.Node) string {
	if item.Alias != "" {
		return item.Alias
	}
	return ast.ShortName(item.Name)
}
