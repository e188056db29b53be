package ast

import "strings"

// Kind identifies the shape of a Node.
// The comment after each constant lists the fields the kind uses.
type Kind string

const (
	KindFile Kind = "file" // Stmts

	// Statements
	KindExprStmt     Kind = "expr_stmt"     // Expr
	KindEcho         Kind = "echo"          // Items
	KindInlineHTML   Kind = "inline_html"   // Value
	KindFunction     Kind = "function"      // Name, Params, Stmts, ByRef
	KindClass        Kind = "class"         // Name, Extends, Implements, Stmts
	KindInterface    Kind = "interface"     // Name, Implements (extended interfaces), Stmts
	KindTrait        Kind = "trait"         // Name, Stmts
	KindTraitUse     Kind = "trait_use"     // Implements (trait names)
	KindMethod       Kind = "method"        // Name, Params, Stmts, ByRef
	KindProperty     Kind = "property"      // Name, Expr (default)
	KindClassConst   Kind = "class_const"   // Name, Expr
	KindGlobal       Kind = "global"        // Items (variables)
	KindStatic       Kind = "static"        // Items (static_var)
	KindStaticVar    Kind = "static_var"    // Name | NameExpr, Expr (default)
	KindConst        Kind = "const"         // Name, Expr
	KindHaltCompiler Kind = "halt_compiler" // Value (remaining text)
	KindNamespace    Kind = "namespace"     // Name, Stmts
	KindUse          Kind = "use"           // Items (use_item)
	KindUseItem      Kind = "use_item"      // Name, Alias
	KindIf           Kind = "if"            // Expr, Stmts, Else (elseif/else)
	KindElseIf       Kind = "elseif"        // Expr, Stmts
	KindElse         Kind = "else"          // Stmts
	KindWhile        Kind = "while"         // Expr, Stmts
	KindDo           Kind = "do"            // Expr, Stmts
	KindFor          Kind = "for"           // Init, Cond, Loop, Stmts
	KindForeach      Kind = "foreach"       // Expr, Left (key), Right (value), ByRef, Stmts
	KindSwitch       Kind = "switch"        // Expr, Items (case)
	KindCase         Kind = "case"          // Expr (nil for default), Stmts
	KindTry          Kind = "try"           // Stmts, Items (catch, finally)
	KindCatch        Kind = "catch"         // Types, Name (variable), Stmts
	KindFinally      Kind = "finally"       // Stmts
	KindBreak        Kind = "break"         // Expr (levels)
	KindContinue     Kind = "continue"      // Expr (levels)
	KindReturn       Kind = "return"        // Expr
	KindThrow        Kind = "throw"         // Expr
	KindUnset        Kind = "unset"         // Items
	KindGoto         Kind = "goto"          // Name
	KindLabel        Kind = "label"         // Name
	KindDeclare      Kind = "declare"       // Items (declare_item), Stmts
	KindDeclareItem  Kind = "declare_item"  // Name, Expr

	// Expressions
	KindVariable            Kind = "variable"              // Name | NameExpr
	KindAssign              Kind = "assign"                // Left, Right
	KindAssignRef           Kind = "assign_ref"            // Left, Right
	KindAssignOp            Kind = "assign_op"             // Name (operator token), Left, Right
	KindBinaryOp            Kind = "binary_op"             // Name (operator token), Left, Right
	KindUnaryOp             Kind = "unary_op"              // Name ("!", "~", "+", "-"), Expr
	KindPreInc              Kind = "pre_inc"               // Expr
	KindPostInc             Kind = "post_inc"              // Expr
	KindPreDec              Kind = "pre_dec"               // Expr
	KindPostDec             Kind = "post_dec"              // Expr
	KindTernary             Kind = "ternary"               // Expr (cond), Left (then, nil for ?:), Right (else)
	KindFuncCall            Kind = "func_call"             // Name | NameExpr, Args
	KindMethodCall          Kind = "method_call"           // Expr (object), Name | NameExpr, Args
	KindStaticCall          Kind = "static_call"           // Class | ClassExpr, Name | NameExpr, Args
	KindPropertyFetch       Kind = "property_fetch"        // Expr (object), Name | NameExpr
	KindStaticPropertyFetch Kind = "static_property_fetch" // Class | ClassExpr, Name
	KindClassConstFetch     Kind = "class_const_fetch"     // Class | ClassExpr, Name
	KindArrayDimFetch       Kind = "array_dim_fetch"       // Expr, Right (dim, nil for [])
	KindNew                 Kind = "new"                   // Class | ClassExpr, Args
	KindClone               Kind = "clone"                 // Expr
	KindConstFetch          Kind = "const_fetch"           // Name | NameExpr
	KindMagicConst          Kind = "magic_const"           // Name ("__LINE__", ...)
	KindCast                Kind = "cast"                  // Name (target type), Expr
	KindYield               Kind = "yield"                 // Left (key), Expr (value)
	KindYieldFrom           Kind = "yield_from"            // Expr
	KindErrorSuppress       Kind = "error_suppress"        // Expr
	KindShellExec           Kind = "shell_exec"            // Items (string parts or expressions)
	KindInclude             Kind = "include"               // Name (include, include_once, require, require_once), Expr
	KindEval                Kind = "eval"                  // Expr
	KindExit                Kind = "exit"                  // Name ("exit" or "die"), Expr
	KindPrint               Kind = "print"                 // Expr
	KindEmpty               Kind = "empty"                 // Expr
	KindIsset               Kind = "isset"                 // Items
	KindList                Kind = "list"                  // Items (array_item)
	KindInstanceof          Kind = "instanceof"            // Expr, Class | ClassExpr
	KindClosure             Kind = "closure"               // Params, Items (closure uses), Stmts, ByRef
	KindArray               Kind = "array"                 // Items (array_item)
	KindArrayItem           Kind = "array_item"            // Left (key), Expr (value), ByRef, Unpack
	KindArg                 Kind = "arg"                   // Expr, Name (named argument), ByRef, Unpack
	KindParam               Kind = "param"                 // Name, Type, Expr (default), ByRef, Unpack (variadic)
	KindString              Kind = "string"                // Value
	KindInt                 Kind = "int"                   // Value (literal text)
	KindFloat               Kind = "float"                 // Value (literal text)
	KindInterpolated        Kind = "interpolated"          // Items (string parts or expressions)
)

var knownKinds = map[Kind]bool{
	KindFile: true, KindExprStmt: true, KindEcho: true, KindInlineHTML: true,
	KindFunction: true, KindClass: true, KindInterface: true, KindTrait: true,
	KindTraitUse: true, KindMethod: true, KindProperty: true, KindClassConst: true,
	KindGlobal: true, KindStatic: true, KindStaticVar: true, KindConst: true,
	KindHaltCompiler: true, KindNamespace: true, KindUse: true, KindUseItem: true,
	KindIf: true, KindElseIf: true, KindElse: true, KindWhile: true, KindDo: true,
	KindFor: true, KindForeach: true, KindSwitch: true, KindCase: true, KindTry: true,
	KindCatch: true, KindFinally: true, KindBreak: true, KindContinue: true,
	KindReturn: true, KindThrow: true, KindUnset: true, KindGoto: true, KindLabel: true,
	KindDeclare: true, KindDeclareItem: true,
	KindVariable: true, KindAssign: true, KindAssignRef: true, KindAssignOp: true,
	KindBinaryOp: true, KindUnaryOp: true, KindPreInc: true, KindPostInc: true,
	KindPreDec: true, KindPostDec: true, KindTernary: true, KindFuncCall: true,
	KindMethodCall: true, KindStaticCall: true, KindPropertyFetch: true,
	KindStaticPropertyFetch: true, KindClassConstFetch: true, KindArrayDimFetch: true,
	KindNew: true, KindClone: true, KindConstFetch: true, KindMagicConst: true,
	KindCast: true, KindYield: true, KindYieldFrom: true, KindErrorSuppress: true,
	KindShellExec: true, KindInclude: true, KindEval: true, KindExit: true,
	KindPrint: true, KindEmpty: true, KindIsset: true, KindList: true,
	KindInstanceof: true, KindClosure: true, KindArray: true, KindArrayItem: true,
	KindArg: true, KindParam: true, KindString: true, KindInt: true, KindFloat: true,
	KindInterpolated: true,
}

// Valid returns true if k is one of the known node kinds.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// Node is a statement or expression in the syntax tree.
// Kind determines which fields are meaningful; unused fields stay zero.
type Node struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Naming
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`             // Identifier, operator token, cast type
	NameExpr  *Node  `json:"name_expr,omitempty" yaml:"name_expr,omitempty"`   // Computed name (dynamic reference)
	Class     string `json:"class,omitempty" yaml:"class,omitempty"`           // Referenced class name
	ClassExpr *Node  `json:"class_expr,omitempty" yaml:"class_expr,omitempty"` // Computed class reference
	Alias     string `json:"alias,omitempty" yaml:"alias,omitempty"`           // use ... as Alias

	// Literal payload
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Type references
	Type       string   `json:"type,omitempty" yaml:"type,omitempty"`             // Parameter type hint
	Types      []string `json:"types,omitempty" yaml:"types,omitempty"`           // Caught types
	Extends    string   `json:"extends,omitempty" yaml:"extends,omitempty"`       // Parent class
	Implements []string `json:"implements,omitempty" yaml:"implements,omitempty"` // Interfaces, extended interfaces, used traits

	// Children
	Expr   *Node   `json:"expr,omitempty" yaml:"expr,omitempty"`
	Left   *Node   `json:"left,omitempty" yaml:"left,omitempty"`
	Right  *Node   `json:"right,omitempty" yaml:"right,omitempty"`
	Args   []*Node `json:"args,omitempty" yaml:"args,omitempty"`
	Params []*Node `json:"params,omitempty" yaml:"params,omitempty"`
	Items  []*Node `json:"items,omitempty" yaml:"items,omitempty"`
	Init   []*Node `json:"init,omitempty" yaml:"init,omitempty"`
	Cond   []*Node `json:"cond,omitempty" yaml:"cond,omitempty"`
	Loop   []*Node `json:"loop,omitempty" yaml:"loop,omitempty"`
	Stmts  []*Node `json:"stmts,omitempty" yaml:"stmts,omitempty"`
	Else   []*Node `json:"else,omitempty" yaml:"else,omitempty"`

	// Flags
	ByRef  bool `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	Unpack bool `json:"unpack,omitempty" yaml:"unpack,omitempty"`

	Location Location `json:"location,omitzero" yaml:"location,omitempty"`
}

// HasDynamicName returns true if the node's name is computed at run time.
func (n *Node) HasDynamicName() bool {
	return n.Name == "" && n.NameExpr != nil
}

// HasDynamicClass returns true if the node's class reference is computed at run time.
func (n *Node) HasDynamicClass() bool {
	return n.Class == "" && n.ClassExpr != nil
}

// IsStatement reports whether the node kind appears in statement position.
func (n *Node) IsStatement() bool {
	switch n.Kind {
	case KindExprStmt, KindEcho, KindInlineHTML, KindFunction, KindClass, KindInterface,
		KindTrait, KindTraitUse, KindMethod, KindProperty, KindClassConst, KindGlobal,
		KindStatic, KindConst, KindHaltCompiler, KindNamespace, KindUse, KindIf,
		KindWhile, KindDo, KindFor, KindForeach, KindSwitch, KindTry, KindBreak,
		KindContinue, KindReturn, KindUnset, KindGoto, KindLabel, KindDeclare:
		return true
	}
	return false
}

// CleanName strips the leading namespace separator of a fully qualified name.
func CleanName(name string) string {
	return strings.TrimLeft(name, `\`)
}

// ShortName returns the last segment of a namespaced name.
func ShortName(name string) string {
	name = CleanName(name)
	if i := strings.LastIndex(name, `\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Constructors used by rewrites. Rewritten nodes inherit the location of the
// node they replace.

// NewString returns a string literal node.
func NewString(value string, loc Location) *Node {
	return &Node{Kind: KindString, Value: value, Location: loc}
}

// NewArg wraps an expression as a call argument.
func NewArg(expr *Node) *Node {
	return &Node{Kind: KindArg, Expr: expr, Location: expr.Location}
}

// NewConstFetch returns a constant fetch such as null or true.
func NewConstFetch(name string, loc Location) *Node {
	return &Node{Kind: KindConstFetch, Name: name, Location: loc}
}

// NewFuncCall returns a call of a named function.
func NewFuncCall(name string, args []*Node, loc Location) *Node {
	return &Node{Kind: KindFuncCall, Name: name, Args: args, Location: loc}
}

// NewMethodCall returns a call of a named method on object.
func NewMethodCall(object *Node, method string, args []*Node, loc Location) *Node {
	return &Node{Kind: KindMethodCall, Expr: object, Name: method, Args: args, Location: loc}
}

// NewStaticCall returns a call of a named static method.
func NewStaticCall(class, method string, args []*Node, loc Location) *Node {
	return &Node{Kind: KindStaticCall, Class: class, Name: method, Args: args, Location: loc}
}
