// Package hooks defines the interception points that rewritten programs call
// and the Go runtime that serves them.
//
// Rewrites never build method names at run time. Every builtin that can be
// intercepted maps to a Method through a fixed table, and the runtime
// dispatches each Method through a second table of handlers.
package hooks

import (
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
)

// SandboxClass is the class through which rewritten code reaches its runtime.
// Sandboxed code may not reference it directly.
const SandboxClass = `Bastion\Sandbox`

// ReceiverMethod is the static method of SandboxClass that returns the
// runtime registered for a sandbox ID.
const ReceiverMethod = "getSandbox"

// Method is a hook method name on the sandbox runtime.
type Method string

const (
	CallFunc       Method = "_call_func"
	CheckFunc      Method = "_check_func"
	GetSuperglobal Method = "_get_superglobal"
	GetMagicConst  Method = "_get_magic_const"
	Wrap           Method = "_wrap"
	WrapByRef      Method = "_wrap_by_ref"

	// Argument introspection
	FuncGetArgs Method = "_func_get_args"
	FuncGetArg  Method = "_func_get_arg"
	FuncNumArgs Method = "_func_num_args"

	// String mimicry and typed conversion
	IsString       Method = "_is_string"
	IsObject       Method = "_is_object"
	IsScalar       Method = "_is_scalar"
	IsCallable     Method = "_is_callable"
	GetType        Method = "_gettype"
	GetClass       Method = "_get_class"
	IntVal         Method = "_intval"
	FloatVal       Method = "_floatval"
	BoolVal        Method = "_boolval"
	StrVal         Method = "_strval"
	ArrayVal       Method = "_arrayval"
	ObjectVal      Method = "_objectval"
	InArray        Method = "_in_array"
	ArrayKeyExists Method = "_array_key_exists"

	// Symbol introspection
	GetDefinedFunctions   Method = "_get_defined_functions"
	GetDefinedVars        Method = "_get_defined_vars"
	GetDefinedConstants   Method = "_get_defined_constants"
	GetDeclaredClasses    Method = "_get_declared_classes"
	GetDeclaredInterfaces Method = "_get_declared_interfaces"
	GetDeclaredTraits     Method = "_get_declared_traits"
	GetIncludedFiles      Method = "_get_included_files"
	FunctionExists        Method = "_function_exists"
	ClassExists           Method = "_class_exists"
	InterfaceExists       Method = "_interface_exists"
	TraitExists           Method = "_trait_exists"
	Defined               Method = "_defined"
)

// Group is a family of proxied builtins enabled by one overwrite flag.
type Group int

const (
	GroupArgs Group = iota
	GroupString
	GroupIntrospection
)

// String returns the group label.
func (g Group) String() string {
	switch g {
	case GroupArgs:
		return "args"
	case GroupString:
		return "string"
	case GroupIntrospection:
		return "introspection"
	}
	return "unknown"
}

// Proxy describes how a builtin is intercepted.
type Proxy struct {
	Method Method
	Group  Group
}

var proxies = map[string]Proxy{
	"func_get_args": {FuncGetArgs, GroupArgs},
	"func_get_arg":  {FuncGetArg, GroupArgs},
	"func_num_args": {FuncNumArgs, GroupArgs},

	"is_string":        {IsString, GroupString},
	"is_object":        {IsObject, GroupString},
	"is_scalar":        {IsScalar, GroupString},
	"is_callable":      {IsCallable, GroupString},
	"gettype":          {GetType, GroupString},
	"get_class":        {GetClass, GroupString},
	"intval":           {IntVal, GroupString},
	"floatval":         {FloatVal, GroupString},
	"boolval":          {BoolVal, GroupString},
	"strval":           {StrVal, GroupString},
	"in_array":         {InArray, GroupString},
	"array_key_exists": {ArrayKeyExists, GroupString},

	"get_defined_functions":   {GetDefinedFunctions, GroupIntrospection},
	"get_defined_vars":        {GetDefinedVars, GroupIntrospection},
	"get_defined_constants":   {GetDefinedConstants, GroupIntrospection},
	"get_declared_classes":    {GetDeclaredClasses, GroupIntrospection},
	"get_declared_interfaces": {GetDeclaredInterfaces, GroupIntrospection},
	"get_declared_traits":     {GetDeclaredTraits, GroupIntrospection},
	"get_included_files":      {GetIncludedFiles, GroupIntrospection},
	"function_exists":         {FunctionExists, GroupIntrospection},
	"class_exists":            {ClassExists, GroupIntrospection},
	"interface_exists":        {InterfaceExists, GroupIntrospection},
	"trait_exists":            {TraitExists, GroupIntrospection},
	"defined":                 {Defined, GroupIntrospection},
}

var castMethods = map[string]Method{
	"int":     IntVal,
	"integer": IntVal,
	"float":   FloatVal,
	"double":  FloatVal,
	"real":    FloatVal,
	"bool":    BoolVal,
	"boolean": BoolVal,
	"array":   ArrayVal,
	"object":  ObjectVal,
}

// Lookup returns the proxy of a builtin function name (lowercase).
func Lookup(builtin string) (Proxy, bool) {
	p, ok := proxies[builtin]
	return p, ok
}

// CastMethod returns the conversion method for a cast target type.
func CastMethod(castType string) (Method, bool) {
	m, ok := castMethods[strings.ToLower(castType)]
	return m, ok
}

// IsSandboxClass reports whether a class reference names SandboxClass.
func IsSandboxClass(name string) bool {
	return strings.EqualFold(ast.CleanName(name), SandboxClass)
}

// Receiver builds the expression that yields the runtime of sandboxID.
func Receiver(sandboxID string, loc ast.Location) *ast.Node {
	return ast.NewStaticCall(`\`+SandboxClass, ReceiverMethod,
		[]*ast.Node{ast.NewArg(ast.NewString(sandboxID, loc))}, loc)
}

// Call builds a call of method on the runtime of sandboxID.
func Call(sandboxID string, method Method, args []*ast.Node, loc ast.Location) *ast.Node {
	return ast.NewMethodCall(Receiver(sandboxID, loc), string(method), args, loc)
}
