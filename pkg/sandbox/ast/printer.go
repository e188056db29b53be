package ast

import (
	"strings"
)

const indentUnit = "    "

// Print renders the tree rooted at n as canonical source text.
// Binary expressions are fully parenthesized, blocks are always braced and
// nested statements are indented with four spaces.
func Print(n *Node) string {
	if n == nil {
		return ""
	}
	p := &printer{}
	if n.Kind == KindFile {
		p.stmts(n.Stmts)
	} else if n.IsStatement() {
		p.stmt(n)
	} else {
		p.sb.WriteString(p.expr(n))
	}
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat(indentUnit, p.indent))
	p.sb.WriteString(s)
	p.sb.WriteString("\n")
}

func (p *printer) stmts(list []*Node) {
	for _, s := range list {
		if s != nil {
			p.stmt(s)
		}
	}
}

// block writes head, the nested statements and the closing brace.
func (p *printer) block(head string, body []*Node) {
	p.line(head + " {")
	p.indent++
	p.stmts(body)
	p.indent--
	p.line("}")
}

func (p *printer) stmt(n *Node) {
	switch n.Kind {
	case KindExprStmt:
		p.line(p.bare(n.Expr) + ";")
	case KindEcho:
		p.line("echo " + p.exprList(n.Items) + ";")
	case KindInlineHTML:
		p.line("?>" + n.Value + "<?php")
	case KindFunction:
		p.block("function "+ref(n.ByRef)+n.Name+"("+p.exprList(n.Params)+")", n.Stmts)
	case KindMethod:
		p.block("public function "+ref(n.ByRef)+n.Name+"("+p.exprList(n.Params)+")", n.Stmts)
	case KindClass:
		head := "class " + n.Name
		if n.Extends != "" {
			head += " extends " + n.Extends
		}
		if len(n.Implements) > 0 {
			head += " implements " + strings.Join(n.Implements, ", ")
		}
		p.block(head, n.Stmts)
	case KindInterface:
		head := "interface " + n.Name
		if len(n.Implements) > 0 {
			head += " extends " + strings.Join(n.Implements, ", ")
		}
		p.block(head, n.Stmts)
	case KindTrait:
		p.block("trait "+n.Name, n.Stmts)
	case KindTraitUse:
		p.line("use " + strings.Join(n.Implements, ", ") + ";")
	case KindProperty:
		p.line("public $" + n.Name + p.initializer(n.Expr) + ";")
	case KindClassConst:
		p.line("const " + n.Name + p.initializer(n.Expr) + ";")
	case KindGlobal:
		p.line("global " + p.exprList(n.Items) + ";")
	case KindStatic:
		p.line("static " + p.exprList(n.Items) + ";")
	case KindConst:
		p.line("const " + n.Name + p.initializer(n.Expr) + ";")
	case KindHaltCompiler:
		p.line("__halt_compiler();" + n.Value)
	case KindNamespace:
		p.block("namespace "+n.Name, n.Stmts)
	case KindUse:
		p.line("use " + p.exprList(n.Items) + ";")
	case KindIf:
		p.line("if (" + p.bare(n.Expr) + ") {")
		p.indent++
		p.stmts(n.Stmts)
		p.indent--
		for _, e := range n.Else {
			switch e.Kind {
			case KindElseIf:
				p.line("} elseif (" + p.bare(e.Expr) + ") {")
			default:
				p.line("} else {")
			}
			p.indent++
			p.stmts(e.Stmts)
			p.indent--
		}
		p.line("}")
	case KindWhile:
		p.block("while ("+p.bare(n.Expr)+")", n.Stmts)
	case KindDo:
		p.line("do {")
		p.indent++
		p.stmts(n.Stmts)
		p.indent--
		p.line("} while (" + p.bare(n.Expr) + ");")
	case KindFor:
		p.block("for ("+p.exprList(n.Init)+"; "+p.exprList(n.Cond)+"; "+p.exprList(n.Loop)+")", n.Stmts)
	case KindForeach:
		target := ref(n.ByRef) + p.expr(n.Right)
		if n.Left != nil {
			target = p.expr(n.Left) + " => " + target
		}
		p.block("foreach ("+p.bare(n.Expr)+" as "+target+")", n.Stmts)
	case KindSwitch:
		p.line("switch (" + p.bare(n.Expr) + ") {")
		p.indent++
		for _, c := range n.Items {
			if c.Expr == nil {
				p.line("default:")
			} else {
				p.line("case " + p.bare(c.Expr) + ":")
			}
			p.indent++
			p.stmts(c.Stmts)
			p.indent--
		}
		p.indent--
		p.line("}")
	case KindTry:
		p.line("try {")
		p.indent++
		p.stmts(n.Stmts)
		p.indent--
		for _, c := range n.Items {
			if c.Kind == KindFinally {
				p.line("} finally {")
			} else {
				head := "} catch (" + strings.Join(c.Types, " | ")
				if c.Name != "" {
					head += " $" + c.Name
				}
				p.line(head + ") {")
			}
			p.indent++
			p.stmts(c.Stmts)
			p.indent--
		}
		p.line("}")
	case KindBreak, KindContinue, KindReturn:
		if n.Expr == nil {
			p.line(string(n.Kind) + ";")
		} else {
			p.line(string(n.Kind) + " " + p.bare(n.Expr) + ";")
		}
	case KindThrow:
		p.line("throw " + p.bare(n.Expr) + ";")
	case KindUnset:
		p.line("unset(" + p.exprList(n.Items) + ");")
	case KindGoto:
		p.line("goto " + n.Name + ";")
	case KindLabel:
		p.line(n.Name + ":")
	case KindDeclare:
		items := make([]string, 0, len(n.Items))
		for _, d := range n.Items {
			items = append(items, d.Name+"="+p.expr(d.Expr))
		}
		head := "declare(" + strings.Join(items, ", ") + ")"
		if len(n.Stmts) == 0 {
			p.line(head + ";")
		} else {
			p.block(head, n.Stmts)
		}
	default:
		p.line(p.bare(n) + ";")
	}
}

func (p *printer) initializer(expr *Node) string {
	if expr == nil {
		return ""
	}
	return " = " + p.bare(expr)
}

func (p *printer) exprList(list []*Node) string {
	parts := make([]string, 0, len(list))
	for _, n := range list {
		if n == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, p.expr(n))
	}
	return strings.Join(parts, ", ")
}

// bare renders an expression without the outer parentheses that expr adds.
func (p *printer) bare(n *Node) string {
	if n == nil {
		return ""
	}
	s := p.expr(n)
	switch n.Kind {
	case KindAssign, KindAssignRef, KindAssignOp, KindBinaryOp, KindTernary, KindInstanceof:
		return s[1 : len(s)-1]
	}
	return s
}

func (p *printer) name(n *Node) string {
	if n.HasDynamicName() {
		return "{" + p.bare(n.NameExpr) + "}"
	}
	return n.Name
}

func (p *printer) class(n *Node) string {
	if n.HasDynamicClass() {
		return p.expr(n.ClassExpr)
	}
	return n.Class
}

func (p *printer) callee(n *Node) string {
	if !n.HasDynamicName() {
		return n.Name
	}
	switch n.NameExpr.Kind {
	case KindVariable, KindArrayDimFetch, KindPropertyFetch:
		return p.expr(n.NameExpr)
	}
	return "(" + p.bare(n.NameExpr) + ")"
}

func (p *printer) expr(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindVariable:
		if n.HasDynamicName() {
			return "${" + p.bare(n.NameExpr) + "}"
		}
		return "$" + n.Name
	case KindAssign:
		return "(" + p.expr(n.Left) + " = " + p.bare(n.Right) + ")"
	case KindAssignRef:
		return "(" + p.expr(n.Left) + " =& " + p.bare(n.Right) + ")"
	case KindAssignOp, KindBinaryOp:
		return "(" + p.expr(n.Left) + " " + n.Name + " " + p.expr(n.Right) + ")"
	case KindUnaryOp:
		return n.Name + p.expr(n.Expr)
	case KindPreInc:
		return "++" + p.expr(n.Expr)
	case KindPostInc:
		return p.expr(n.Expr) + "++"
	case KindPreDec:
		return "--" + p.expr(n.Expr)
	case KindPostDec:
		return p.expr(n.Expr) + "--"
	case KindTernary:
		if n.Left == nil {
			return "(" + p.expr(n.Expr) + " ?: " + p.expr(n.Right) + ")"
		}
		return "(" + p.expr(n.Expr) + " ? " + p.expr(n.Left) + " : " + p.expr(n.Right) + ")"
	case KindFuncCall:
		return p.callee(n) + "(" + p.exprList(n.Args) + ")"
	case KindMethodCall:
		return p.expr(n.Expr) + "->" + p.name(n) + "(" + p.exprList(n.Args) + ")"
	case KindStaticCall:
		return p.class(n) + "::" + p.name(n) + "(" + p.exprList(n.Args) + ")"
	case KindPropertyFetch:
		return p.expr(n.Expr) + "->" + p.name(n)
	case KindStaticPropertyFetch:
		return p.class(n) + "::$" + p.name(n)
	case KindClassConstFetch:
		return p.class(n) + "::" + n.Name
	case KindArrayDimFetch:
		return p.expr(n.Expr) + "[" + p.bare0(n.Right) + "]"
	case KindNew:
		return "new " + p.class(n) + "(" + p.exprList(n.Args) + ")"
	case KindClone:
		return "clone " + p.expr(n.Expr)
	case KindConstFetch:
		if n.HasDynamicName() {
			return "constant(" + p.bare(n.NameExpr) + ")"
		}
		return n.Name
	case KindMagicConst:
		return n.Name
	case KindCast:
		return "(" + n.Name + ")" + p.expr(n.Expr)
	case KindYield:
		switch {
		case n.Expr == nil:
			return "(yield)"
		case n.Left != nil:
			return "(yield " + p.expr(n.Left) + " => " + p.expr(n.Expr) + ")"
		default:
			return "(yield " + p.expr(n.Expr) + ")"
		}
	case KindYieldFrom:
		return "(yield from " + p.expr(n.Expr) + ")"
	case KindErrorSuppress:
		return "@" + p.expr(n.Expr)
	case KindShellExec:
		return "`" + p.parts(n.Items, "`") + "`"
	case KindInclude:
		return n.Name + " " + p.expr(n.Expr)
	case KindEval:
		return "eval(" + p.bare(n.Expr) + ")"
	case KindExit:
		name := n.Name
		if name == "" {
			name = "exit"
		}
		return name + "(" + p.bare0(n.Expr) + ")"
	case KindPrint:
		return "print " + p.expr(n.Expr)
	case KindEmpty:
		return "empty(" + p.bare(n.Expr) + ")"
	case KindIsset:
		return "isset(" + p.exprList(n.Items) + ")"
	case KindList:
		return "list(" + p.exprList(n.Items) + ")"
	case KindInstanceof:
		return "(" + p.expr(n.Expr) + " instanceof " + p.class(n) + ")"
	case KindClosure:
		return p.closure(n)
	case KindArray:
		return "[" + p.exprList(n.Items) + "]"
	case KindArrayItem:
		s := ""
		if n.Left != nil {
			s = p.bare(n.Left) + " => "
		}
		if n.Unpack {
			s += "..."
		}
		return s + ref(n.ByRef) + p.bare(n.Expr)
	case KindArg:
		s := ""
		if n.Name != "" {
			s = n.Name + ": "
		}
		if n.Unpack {
			s += "..."
		}
		return s + ref(n.ByRef) + p.bare(n.Expr)
	case KindParam:
		s := ""
		if n.Type != "" {
			s = n.Type + " "
		}
		s += ref(n.ByRef)
		if n.Unpack {
			s += "..."
		}
		s += "$" + n.Name
		return s + p.initializer(n.Expr)
	case KindStaticVar:
		return "$" + p.name(n) + p.initializer(n.Expr)
	case KindUseItem:
		if n.Alias != "" {
			return n.Name + " as " + n.Alias
		}
		return n.Name
	case KindString:
		return quote(n.Value)
	case KindInt, KindFloat:
		return n.Value
	case KindInterpolated:
		return `"` + p.parts(n.Items, `"`) + `"`
	default:
		// Statement kinds never appear in expression position in a well formed tree.
		return "/* " + string(n.Kind) + " */"
	}
}

// bare0 is bare for optional expressions.
func (p *printer) bare0(n *Node) string {
	if n == nil {
		return ""
	}
	return p.bare(n)
}

func (p *printer) closure(n *Node) string {
	head := "function " + ref(n.ByRef) + "(" + p.exprList(n.Params) + ")"
	if len(n.Items) > 0 {
		uses := make([]string, 0, len(n.Items))
		for _, u := range n.Items {
			uses = append(uses, ref(u.ByRef)+p.expr(u))
		}
		head += " use (" + strings.Join(uses, ", ") + ")"
	}
	body := &printer{indent: p.indent + 1}
	body.stmts(n.Stmts)
	return head + " {\n" + body.sb.String() + strings.Repeat(indentUnit, p.indent) + "}"
}

// parts renders the segments of an interpolated string or shell command.
func (p *printer) parts(items []*Node, delim string) string {
	var sb strings.Builder
	for _, part := range items {
		if part.Kind == KindString {
			sb.WriteString(escapeInterpolated(part.Value, delim))
			continue
		}
		sb.WriteString("{" + p.bare(part) + "}")
	}
	return sb.String()
}

func ref(byRef bool) string {
	if byRef {
		return "&"
	}
	return ""
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func escapeInterpolated(s, delim string) string {
	r := strings.NewReplacer(`\`, `\\`, delim, `\`+delim, `$`, `\$`)
	return r.Replace(s)
}
