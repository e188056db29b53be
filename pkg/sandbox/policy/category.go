package policy

import (
	"fmt"
	"strings"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

// Category is a class of symbols governed by its own whitelist, blacklist,
// definitions and validator.
type Category string

const (
	Function      Category = "function"
	Variable      Category = "variable"
	Global        Category = "global"
	Superglobal   Category = "superglobal"
	Constant      Category = "constant"
	MagicConstant Category = "magic_constant"
	Namespace     Category = "namespace"
	Alias         Category = "alias"
	Class         Category = "class"
	Interface     Category = "interface"
	Trait         Category = "trait"
	Keyword       Category = "keyword"
	Operator      Category = "operator"
	Primitive     Category = "primitive"
	Type          Category = "type"
)

// categories is ordered by diagnostic code offset.
var categories = []Category{
	Function, Variable, Global, Superglobal, Constant, MagicConstant, Namespace,
	Alias, Class, Interface, Trait, Keyword, Operator, Primitive, Type,
}

var categoryIndex = func() map[Category]int {
	m := make(map[Category]int, len(categories))
	for i, c := range categories {
		m[c] = i
	}
	return m
}()

var categoryAliases = map[string]Category{
	"meta_constant": MagicConstant,
	"metaconstant":  MagicConstant,
	"magicconstant": MagicConstant,
	"func":          Function,
	"var":           Variable,
}

// Categories returns all categories in code order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory resolves a category name. Plural forms and dashes are accepted.
func ParseCategory(s string) (Category, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, candidate := range []string{key, strings.TrimSuffix(key, "s"), strings.TrimSuffix(key, "es")} {
		if c := Category(candidate); c.Valid() {
			return c, nil
		}
		if c, ok := categoryAliases[candidate]; ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown policy category %q", s)
}

// Valid returns true if c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Index returns the diagnostic code offset of the category, or -1.
func (c Category) Index() int {
	if i, ok := categoryIndex[c]; ok {
		return i
	}
	return -1
}

// Code returns the diagnostic code of the category within r.
func (c Category) Code(r sbErrors.Range) sbErrors.Code {
	return sbErrors.CodeFor(r, c.Index())
}

// HasDefinitions reports whether symbols of the category can be defined by the host.
func (c Category) HasDefinitions() bool {
	switch c {
	case Global, Keyword, Operator, Primitive, Type:
		return false
	}
	return c.Valid()
}

// HasKeys reports whether list entries of the category carry sub-keys.
func (c Category) HasKeys() bool {
	return c == Superglobal
}
