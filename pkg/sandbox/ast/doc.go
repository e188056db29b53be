// Package ast provides the syntax tree model consumed and produced by the sandbox.
//
// The tree is supplied by an external parser. Every node is a single tagged
// struct: Kind selects the node shape and determines which of the shared
// fields are meaningful (see the Kind constants for the per-kind layout).
// Validators dispatch on Kind with a switch, and trees serialize to YAML or
// JSON without custom codecs.
//
// # Core Types
//
// Node: a statement or expression, tagged by Kind
//
// Location: source location (file, line, column)
//
// Result: the outcome of leaving a node during Transform (keep, replace, splice, remove)
//
// # Basic Usage
//
// Decode a serialized tree and rewrite it bottom-up:
//
//	tree, err := ast.DecodeYAML(data, "program.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := ast.Transform(tree, ast.LeaveFunc(func(n *ast.Node) (ast.Result, error) {
//	    if n.Kind == ast.KindInlineHTML {
//	        return ast.Remove(), nil
//	    }
//	    return ast.Keep(), nil
//	}))
//
//	fmt.Println(ast.Print(out))
//
// # Tree Structure
//
//	file
//	└── Stmts
//	    ├── function (Name, Params, Stmts)
//	    ├── class (Name, Extends, Implements, Stmts)
//	    ├── expr_stmt (Expr)
//	    │   └── func_call (Name | NameExpr, Args)
//	    │       └── arg (Expr)
//	    └── if (Expr, Stmts, Else)
//
// # Canonical Text
//
// Print renders a tree in a canonical, fully parenthesized form. Two trees
// print identically iff they are structurally identical, which makes the
// printed text suitable as a cache value and as input for the executor.
package ast
