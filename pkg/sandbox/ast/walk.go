package ast

import "fmt"

// Result describes what happens to a node after its subtree has been visited.
type Result struct {
	nodes   []*Node
	changed bool
}

// Keep leaves the node in place.
func Keep() Result {
	return Result{}
}

// Replace substitutes the node with n.
func Replace(n *Node) Result {
	return Result{nodes: []*Node{n}, changed: true}
}

// Splice substitutes the node with zero or more nodes.
// Splicing more than one node is only valid inside a node list.
func Splice(nodes ...*Node) Result {
	if nodes == nil {
		nodes = []*Node{}
	}
	return Result{nodes: nodes, changed: true}
}

// Remove deletes the node from its parent.
func Remove() Result {
	return Result{nodes: []*Node{}, changed: true}
}

// Visitor receives callbacks during Transform.
// Enter runs before a node's children are visited, Leave after.
type Visitor interface {
	Enter(n *Node) error
	Leave(n *Node) (Result, error)
}

// LeaveFunc adapts a function to a Visitor that only acts on Leave.
type LeaveFunc func(n *Node) (Result, error)

// Enter implements Visitor.
func (f LeaveFunc) Enter(*Node) error { return nil }

// Leave implements Visitor.
func (f LeaveFunc) Leave(n *Node) (Result, error) { return f(n) }

// Transform walks the tree rooted at root in post-order and applies the
// results returned by v.Leave. Nodes produced by a rewrite are not visited
// again. It returns the (possibly replaced) root, or nil if it was removed.
// The first error aborts the walk.
func Transform(root *Node, v Visitor) (*Node, error) {
	if root == nil {
		return nil, nil
	}
	out, err := transform(root, v)
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return &Node{Kind: KindFile, Stmts: out, Location: root.Location}, nil
	}
}

func transform(n *Node, v Visitor) ([]*Node, error) {
	if err := v.Enter(n); err != nil {
		return nil, err
	}

	var err error
	singles := []**Node{&n.NameExpr, &n.ClassExpr, &n.Expr, &n.Left, &n.Right}
	for _, slot := range singles {
		if *slot == nil {
			continue
		}
		if *slot, err = transformSingle(*slot, v); err != nil {
			return nil, err
		}
	}

	lists := []*[]*Node{&n.Args, &n.Params, &n.Items, &n.Init, &n.Cond, &n.Loop, &n.Stmts, &n.Else}
	for _, list := range lists {
		if len(*list) == 0 {
			continue
		}
		if *list, err = transformList(*list, v); err != nil {
			return nil, err
		}
	}

	res, err := v.Leave(n)
	if err != nil {
		return nil, err
	}
	if !res.changed {
		return []*Node{n}, nil
	}
	return res.nodes, nil
}

func transformSingle(n *Node, v Visitor) (*Node, error) {
	out, err := transform(n, v)
	if err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return nil, fmt.Errorf("%s: cannot splice %d nodes into a single %s child", n.Location, len(out), n.Kind)
	}
}

func transformList(list []*Node, v Visitor) ([]*Node, error) {
	result := make([]*Node, 0, len(list))
	for _, child := range list {
		if child == nil {
			continue
		}
		out, err := transform(child, v)
		if err != nil {
			return nil, err
		}
		result = append(result, out...)
	}
	return result, nil
}

// Inspect traverses the tree in pre-order, calling fn for each node.
// If fn returns false, the children of that node are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range []*Node{n.NameExpr, n.ClassExpr, n.Expr, n.Left, n.Right} {
		Inspect(child, fn)
	}
	for _, list := range [][]*Node{n.Args, n.Params, n.Items, n.Init, n.Cond, n.Loop, n.Stmts, n.Else} {
		for _, child := range list {
			Inspect(child, fn)
		}
	}
}

// Clone returns a deep copy of the tree rooted at n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.NameExpr = Clone(n.NameExpr)
	c.ClassExpr = Clone(n.ClassExpr)
	c.Expr = Clone(n.Expr)
	c.Left = Clone(n.Left)
	c.Right = Clone(n.Right)
	c.Args = cloneList(n.Args)
	c.Params = cloneList(n.Params)
	c.Items = cloneList(n.Items)
	c.Init = cloneList(n.Init)
	c.Cond = cloneList(n.Cond)
	c.Loop = cloneList(n.Loop)
	c.Stmts = cloneList(n.Stmts)
	c.Else = cloneList(n.Else)
	if n.Types != nil {
		c.Types = append([]string(nil), n.Types...)
	}
	if n.Implements != nil {
		c.Implements = append([]string(nil), n.Implements...)
	}
	return &c
}

func cloneList(list []*Node) []*Node {
	if list == nil {
		return nil
	}
	out := make([]*Node, len(list))
	for i, n := range list {
		out[i] = Clone(n)
	}
	return out
}
