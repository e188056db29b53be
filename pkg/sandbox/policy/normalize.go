package policy

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var keywordSynonyms = map[string]string{
	"die":          "exit",
	"include_once": "include",
	"require":      "include",
	"require_once": "include",
	"print":        "echo",
	"else":         "if",
	"elseif":       "if",
	"case":         "switch",
	"catch":        "try",
	"finally":      "try",
	"do":           "while",
	"foreach":      "for",
	"alias":        "use",
}

var primitiveSynonyms = map[string]string{
	"double":  "float",
	"integer": "int",
}

// Normalize returns the canonical spelling of name within category c.
// Every category first applies NFKC compatibility folding and strips
// invisible characters so visually identical spellings collapse.
// Normalize is idempotent.
func Normalize(c Category, name string) string {
	name = fold(name)
	switch c {
	case MagicConstant:
		return strings.TrimFunc(strings.ToUpper(name), isPadding)
	case Superglobal:
		return strings.TrimLeftFunc(strings.ToUpper(name), isPadding)
	case Constant:
		return name
	case Keyword:
		name = strings.ToLower(name)
		if canonical, ok := keywordSynonyms[name]; ok {
			return canonical
		}
		return name
	case Operator:
		return normalizeOperator(strings.ToLower(name))
	case Primitive:
		name = strings.ToLower(name)
		if canonical, ok := primitiveSynonyms[name]; ok {
			return canonical
		}
		return name
	default:
		return strings.ToLower(name)
	}
}

// NormalizeKey returns the canonical spelling of a superglobal sub-key.
// Keys are folded like names but keep their case, since array keys are
// case-sensitive.
func NormalizeKey(key string) string {
	return fold(key)
}

// NormalizeList applies Normalize to every name.
func NormalizeList(c Category, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = Normalize(c, name)
	}
	return out
}

// normalizeOperator collapses positional variants: increments and decrements
// keep their direction, other multi-character tokens with a sign collapse to
// the generic unary token.
func normalizeOperator(op string) string {
	switch {
	case strings.Contains(op, "++"):
		if strings.HasPrefix(op, "++") {
			return "++n"
		}
		return "n++"
	case strings.Contains(op, "--"):
		if strings.HasPrefix(op, "--") {
			return "--n"
		}
		return "n--"
	case len(op) > 1 && strings.Contains(op, "+"):
		return "+n"
	case len(op) > 1 && strings.Contains(op, "-"):
		return "-n"
	}
	return op
}

func fold(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || (unicode.IsPrint(r) && !unicode.IsControl(r)) {
			return r
		}
		return -1
	}, norm.NFKC.String(s))
	return strings.TrimSpace(s)
}

// isPadding reports the runes trimmed around meta-constant and superglobal
// names.
func isPadding(r rune) bool {
	return r == '_' || unicode.IsSpace(r)
}
