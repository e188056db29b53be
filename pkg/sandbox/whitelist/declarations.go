package whitelist

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
	"mercator-hq/bastion/pkg/sandbox/options"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

// Declarations whitelists the symbols the sandboxed program declares for
// itself. Each category is gated by its allow and auto-whitelist options.
// The tree is not modified.
func Declarations(store *policy.Store, opts *options.Options, tree *ast.Node) error {
	d := &declarations{store: store, opts: opts}
	ast.Inspect(tree, func(n *ast.Node) bool {
		if d.err != nil {
			return false
		}
		d.err = d.visit(n)
		return d.err == nil
	})
	return d.err
}

type declarations struct {
	store *policy.Store
	opts  *options.Options
	err   error
}

func (d *declarations) visit(n *ast.Node) error {
	switch n.Kind {
	case ast.KindFunction:
		return d.auto(policy.Function, policy.Function, n.Name)
	case ast.KindClass:
		return d.auto(policy.Class, policy.Class, n.Name)
	case ast.KindInterface:
		return d.auto(policy.Interface, policy.Interface, n.Name)
	case ast.KindTrait:
		return d.auto(policy.Trait, policy.Trait, n.Name)
	case ast.KindFuncCall:
		if name, ok := definedConstant(n); ok {
			return d.auto(policy.Constant, policy.Constant, name)
		}
	case ast.KindGlobal:
		for _, item := range n.Items {
			if item.Kind != ast.KindVariable || item.HasDynamicName() {
				continue
			}
			if err := d.auto(policy.Global, policy.Global, item.Name); err != nil {
				return err
			}
			if d.store.HasWhitelist(policy.Variable) {
				if err := d.auto(policy.Global, policy.Variable, item.Name); err != nil {
					return err
				}
			}
		}
	case ast.KindNew:
		if !n.HasDynamicClass() && !isRelativeClass(n.Class) {
			return d.auto(policy.Type, policy.Type, n.Class)
		}
	}
	return nil
}

// auto whitelists name in target when gate may be declared and
// auto-whitelisted and target has no blacklist.
func (d *declarations) auto(gate, target policy.Category, name string) error {
	if !d.opts.AllowsDeclaring(gate) || !d.opts.AutoWhitelists(gate) {
		return nil
	}
	return allow(d.store, target, name)
}

func isRelativeClass(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return true
	}
	return false
}
