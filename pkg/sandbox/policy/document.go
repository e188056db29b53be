package policy

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Document is a declarative policy loaded from YAML.
//
//	whitelist:
//	  function: [strlen, str_replace]
//	  keyword: [if, echo]
//	blacklist:
//	  class: [ReflectionClass]
//	whitelist_keys:
//	  superglobal:
//	    _GET: [page, sort]
//	definitions:
//	  constant:
//	    APP_VERSION: "1.2.0"
//	  alias:
//	    Str: App\Util\Str
type Document struct {
	Whitelist     map[string][]string            `yaml:"whitelist,omitempty"`
	Blacklist     map[string][]string            `yaml:"blacklist,omitempty"`
	WhitelistKeys map[string]map[string][]string `yaml:"whitelist_keys,omitempty"`
	BlacklistKeys map[string]map[string][]string `yaml:"blacklist_keys,omitempty"`
	Definitions   map[string]map[string]any      `yaml:"definitions,omitempty"`
}

// ParseDocument decodes a policy document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy document: %w", err)
	}
	return &doc, nil
}

// Validate checks category names and definitions without touching a store.
// Every problem found is returned.
func (d *Document) Validate() error {
	return d.apply(NewStore())
}

// Apply loads the document into store. Categories are processed in sorted
// order; all problems are collected and returned together.
func (d *Document) Apply(store *Store) error {
	return d.apply(store)
}

func (d *Document) apply(store *Store) error {
	var errs []error
	collect := func(section, name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", section, name, err))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(d.Whitelist)) {
		c, err := ParseCategory(name)
		if err != nil {
			collect("whitelist", name, err)
			continue
		}
		collect("whitelist", name, store.AllowList(c, d.Whitelist[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(d.Blacklist)) {
		c, err := ParseCategory(name)
		if err != nil {
			collect("blacklist", name, err)
			continue
		}
		collect("blacklist", name, store.DenyList(c, d.Blacklist[name]))
	}
	applyKeys := func(section string, lists map[string]map[string][]string, add func(Category, string, []string) error) {
		for _, name := range slices.Sorted(maps.Keys(lists)) {
			c, err := ParseCategory(name)
			if err != nil {
				collect(section, name, err)
				continue
			}
			if !c.HasKeys() {
				collect(section, name, fmt.Errorf("category %s has no sub-keys", c))
				continue
			}
			entries := lists[name]
			for _, symbol := range slices.Sorted(maps.Keys(entries)) {
				collect(section, name, add(c, symbol, entries[symbol]))
			}
		}
	}
	applyKeys("whitelist_keys", d.WhitelistKeys, store.AllowKeys)
	applyKeys("blacklist_keys", d.BlacklistKeys, store.DenyKeys)

	for _, name := range slices.Sorted(maps.Keys(d.Definitions)) {
		c, err := ParseCategory(name)
		if err != nil {
			collect("definitions", name, err)
			continue
		}
		collect("definitions", name, store.DefineMap(c, documentValues(c, d.Definitions[name])))
	}

	return errors.Join(errs...)
}

// documentValues adapts YAML-decoded values to the types Define expects.
func documentValues(c Category, defs map[string]any) map[string]any {
	out := make(map[string]any, len(defs))
	for name, v := range defs {
		switch c {
		case Namespace:
			if v == nil {
				v = name
			}
		case Class, Interface, Trait:
			if v == nil {
				v = ""
			}
		case Superglobal:
			if m, ok := v.(map[string]any); ok {
				v = m
			} else if v == nil {
				v = map[string]any{}
			}
		}
		out[name] = v
	}
	return out
}
