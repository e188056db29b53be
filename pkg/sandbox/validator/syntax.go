package validator

import (
	"mercator-hq/bastion/pkg/sandbox/ast"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
	"mercator-hq/bastion/pkg/sandbox/hooks"
)

var keywords = map[ast.Kind]string{
	ast.KindEcho:         "echo",
	ast.KindPrint:        "print",
	ast.KindClone:        "clone",
	ast.KindEmpty:        "empty",
	ast.KindGoto:         "goto",
	ast.KindLabel:        "goto",
	ast.KindIf:           "if",
	ast.KindElseIf:       "elseif",
	ast.KindElse:         "else",
	ast.KindBreak:        "break",
	ast.KindContinue:     "continue",
	ast.KindSwitch:       "switch",
	ast.KindCase:         "case",
	ast.KindTry:          "try",
	ast.KindCatch:        "catch",
	ast.KindFinally:      "finally",
	ast.KindThrow:        "throw",
	ast.KindUnset:        "unset",
	ast.KindReturn:       "return",
	ast.KindStatic:       "static",
	ast.KindWhile:        "while",
	ast.KindDo:           "do",
	ast.KindDeclare:      "declare",
	ast.KindFor:          "for",
	ast.KindForeach:      "foreach",
	ast.KindInstanceof:   "instanceof",
	ast.KindIsset:        "isset",
	ast.KindList:         "list",
	ast.KindEval:         "eval",
	ast.KindYield:        "yield",
	ast.KindYieldFrom:    "yield",
	ast.KindHaltCompiler: "__halt_compiler",
}

// keywordOf returns the keyword a node is written with.
func keywordOf(n *ast.Node) string {
	switch n.Kind {
	case ast.KindInclude:
		if n.Name == "" {
			return "include"
		}
		return n.Name
	case ast.KindExit:
		if n.Name == "" {
			return "exit"
		}
		return n.Name
	}
	return keywords[n.Kind]
}

var operators = map[ast.Kind]string{
	ast.KindAssign:    "=",
	ast.KindAssignRef: "=&",
	ast.KindPreInc:    "++n",
	ast.KindPostInc:   "n++",
	ast.KindPreDec:    "--n",
	ast.KindPostDec:   "n--",
	ast.KindTernary:   "?",
}

// operatorOf returns the operator token of a node.
func operatorOf(n *ast.Node) string {
	switch n.Kind {
	case ast.KindAssignOp, ast.KindBinaryOp:
		return n.Name
	case ast.KindUnaryOp:
		switch n.Name {
		case "+":
			return "+n"
		case "-":
			return "-n"
		}
		return n.Name
	}
	return operators[n.Kind]
}

var primitives = map[ast.Kind]string{
	ast.KindArray:        "array",
	ast.KindString:       "string",
	ast.KindInterpolated: "string",
	ast.KindInt:          "int",
	ast.KindFloat:        "float",
}

// primitiveOf returns the primitive type a node produces.
func primitiveOf(n *ast.Node) string {
	switch n.Kind {
	case ast.KindCast:
		return n.Name
	case ast.KindConstFetch:
		if n.HasDynamicName() {
			return ""
		}
		return literalPrimitive(n.Name)
	}
	return primitives[n.Kind]
}

func (p *pass) cast(n *ast.Node) (ast.Result, error) {
	if err := p.require(p.opts.AllowCasting, sbErrors.CodeCast, n.Name, n,
		"sandboxed code attempted to cast to %s", n.Name); err != nil {
		return ast.Keep(), err
	}
	m, ok := hooks.CastMethod(n.Name)
	if !ok {
		return ast.Keep(), nil
	}
	return ast.Replace(p.hook(m, n.Location, ast.NewArg(n.Expr))), nil
}

func (p *pass) closure(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowClosures, sbErrors.CodeClosure, "", n,
		"sandboxed code attempted to create a closure")
}

func (p *pass) generator(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowGenerators, sbErrors.CodeGenerator, "", n,
		"sandboxed code attempted to create a generator")
}

func (p *pass) errorSuppress(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowErrorSuppressing, sbErrors.CodeErrorSuppress, "", n,
		"sandboxed code attempted to suppress errors")
}

func (p *pass) assignRef(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowReferences, sbErrors.CodeByRef, "", n,
		"sandboxed code attempted to assign by reference")
}

func (p *pass) halt(n *ast.Node) (ast.Result, error) {
	return ast.Keep(), p.require(p.opts.AllowHalting, sbErrors.CodeHalt, "", n,
		"sandboxed code attempted to halt the compiler")
}

