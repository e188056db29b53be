package errors

import "fmt"

// Code identifies a diagnostic.
type Code int

// Range is the first code of a group of related codes.
type Range int

const (
	RangeMisc       Range = 0
	RangeDefinition Range = 100
	RangeValid      Range = 200
	RangeWhitelist  Range = 300
	RangeBlacklist  Range = 400
)

// Misc codes for parse failures and language features that are disabled.
const (
	CodeParse Code = iota + 1
	CodeEscape
	CodeHalt
	CodeCast
	CodeClosure
	CodeByRef
	CodeGenerator
	CodeGlobals
	CodeDynamicVar
	CodeStaticVar
	CodeErrorSuppress
	CodeBackticks
	CodeImport
	CodeDynamicStaticVar
	CodeDynamicConst
	CodeDynamicClass
	CodeSandboxAccess
	CodeGlobalConst
	CodeCreateObject
	CodeInclude
	CodeNamespace
	CodeAlias
)

var miscNames = map[Code]string{
	CodeParse:            "parse",
	CodeEscape:           "escape",
	CodeHalt:             "halt",
	CodeCast:             "cast",
	CodeClosure:          "closure",
	CodeByRef:            "by_ref",
	CodeGenerator:        "generator",
	CodeGlobals:          "globals",
	CodeDynamicVar:       "dynamic_var",
	CodeStaticVar:        "static_var",
	CodeErrorSuppress:    "error_suppress",
	CodeBackticks:        "backticks",
	CodeImport:           "import",
	CodeDynamicStaticVar: "dynamic_static_var",
	CodeDynamicConst:     "dynamic_const",
	CodeDynamicClass:     "dynamic_class",
	CodeSandboxAccess:    "sandbox_access",
	CodeGlobalConst:      "global_const",
	CodeCreateObject:     "create_object",
	CodeInclude:          "include",
	CodeNamespace:        "namespace",
	CodeAlias:            "alias",
}

// CodeFor returns the code for a category index within a policy range.
func CodeFor(r Range, categoryIndex int) Code {
	return Code(int(r) + categoryIndex)
}

// Range returns the group the code belongs to.
func (c Code) Range() Range {
	switch {
	case c >= 400:
		return RangeBlacklist
	case c >= 300:
		return RangeWhitelist
	case c >= 200:
		return RangeValid
	case c >= 100:
		return RangeDefinition
	default:
		return RangeMisc
	}
}

// CategoryIndex returns the category offset of a policy code, or -1 for misc codes.
func (c Code) CategoryIndex() int {
	if c.Range() == RangeMisc {
		return -1
	}
	return int(c) - int(c.Range())
}

// String returns a short label for the code.
func (c Code) String() string {
	if c.Range() == RangeMisc {
		if name, ok := miscNames[c]; ok {
			return name
		}
		return fmt.Sprintf("misc_%d", int(c))
	}
	return fmt.Sprintf("%s_%d", c.Range(), c.CategoryIndex())
}

// String returns the range label used in logs and metrics.
func (r Range) String() string {
	switch r {
	case RangeMisc:
		return "misc"
	case RangeDefinition:
		return "definition"
	case RangeValid:
		return "valid"
	case RangeWhitelist:
		return "whitelist"
	case RangeBlacklist:
		return "blacklist"
	default:
		return fmt.Sprintf("range_%d", int(r))
	}
}
