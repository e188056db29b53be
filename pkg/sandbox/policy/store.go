package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

// Func is a host function callable from sandboxed code.
type Func func(args ...any) (any, error)

// keySet holds the sub-keys of a list entry. An empty set covers the whole symbol.
type keySet map[string]struct{}

type rules struct {
	whitelist   map[string]keySet
	blacklist   map[string]keySet
	definitions map[string]any
	validator   ValidatorFunc
}

func newRules() *rules {
	return &rules{
		whitelist:   make(map[string]keySet),
		blacklist:   make(map[string]keySet),
		definitions: make(map[string]any),
	}
}

// Store holds the whitelists, blacklists, definitions and validators of every
// category. All names are normalized for their category on write and read.
// Store is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	rules        map[Category]*rules
	defaultAllow map[Category]bool
}

// NewStore creates an empty store. Keywords, operators, primitives and types
// are allowed by default; every other category denies until configured.
func NewStore() *Store {
	s := &Store{
		rules:        make(map[Category]*rules, len(categories)),
		defaultAllow: map[Category]bool{Keyword: true, Operator: true, Primitive: true, Type: true},
	}
	for _, c := range categories {
		s.rules[c] = newRules()
	}
	return s
}

func (s *Store) category(c Category) (*rules, error) {
	r, ok := s.rules[c]
	if !ok {
		return nil, fmt.Errorf("unknown policy category %q", c)
	}
	return r, nil
}

// Allow whitelists name.
func (s *Store) Allow(c Category, name string) error {
	return s.AllowKeys(c, name, nil)
}

// AllowList whitelists every name.
func (s *Store) AllowList(c Category, names []string) error {
	for _, name := range names {
		if err := s.AllowKeys(c, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// AllowKeys whitelists sub-keys of name. Keys are only meaningful for
// categories that carry them; an empty key list whitelists the whole symbol.
func (s *Store) AllowKeys(c Category, name string, keys []string) error {
	return s.add(c, name, keys, func(r *rules) map[string]keySet { return r.whitelist })
}

// Deny blacklists name.
func (s *Store) Deny(c Category, name string) error {
	return s.DenyKeys(c, name, nil)
}

// DenyList blacklists every name.
func (s *Store) DenyList(c Category, names []string) error {
	for _, name := range names {
		if err := s.DenyKeys(c, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// DenyKeys blacklists sub-keys of name.
func (s *Store) DenyKeys(c Category, name string, keys []string) error {
	return s.add(c, name, keys, func(r *rules) map[string]keySet { return r.blacklist })
}

func (s *Store) add(c Category, name string, keys []string, list func(*rules) map[string]keySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.category(c)
	if err != nil {
		return err
	}
	name = Normalize(c, name)
	if name == "" {
		return sbErrors.Newf(c.Code(sbErrors.RangeDefinition), string(c), "", "cannot list an unnamed %s", c)
	}
	l := list(r)
	set, ok := l[name]
	if !ok {
		set = make(keySet)
		l[name] = set
	}
	if c.HasKeys() {
		for _, k := range keys {
			if k = NormalizeKey(k); k != "" {
				set[k] = struct{}{}
			}
		}
	}
	return nil
}

// Unallow removes name from the whitelist.
func (s *Store) Unallow(c Category, name string) {
	s.remove(c, name, func(r *rules) map[string]keySet { return r.whitelist })
}

// Undeny removes name from the blacklist.
func (s *Store) Undeny(c Category, name string) {
	s.remove(c, name, func(r *rules) map[string]keySet { return r.blacklist })
}

func (s *Store) remove(c Category, name string, list func(*rules) map[string]keySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, err := s.category(c); err == nil {
		delete(list(r), Normalize(c, name))
	}
}

// ClearWhitelist empties the whitelist of c.
func (s *Store) ClearWhitelist(c Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, err := s.category(c); err == nil {
		clear(r.whitelist)
	}
}

// ClearBlacklist empties the blacklist of c.
func (s *Store) ClearBlacklist(c Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, err := s.category(c); err == nil {
		clear(r.blacklist)
	}
}

// Define registers a trusted definition for name. Functions must be callable.
// Alias values are targets and are stored normalized.
func (s *Store) Define(c Category, name string, value any) error {
	defErr := func(format string, args ...any) error {
		return sbErrors.Newf(c.Code(sbErrors.RangeDefinition), string(c), name, format, args...)
	}
	if !c.HasDefinitions() {
		return defErr("%s symbols cannot be defined", c)
	}
	key := Normalize(c, name)
	if key == "" {
		return defErr("cannot define an unnamed %s", c)
	}

	switch c {
	case Function:
		fn, ok := asFunc(value)
		if !ok {
			return defErr("cannot define uncallable function %s", name)
		}
		value = fn
	case Alias:
		target, ok := value.(string)
		if !ok || target == "" {
			return defErr("alias %s needs a target name", name)
		}
		value = Normalize(Alias, target)
	case Class, Interface, Trait:
		if value != nil {
			if _, ok := value.(string); !ok {
				return defErr("%s %s must be redefined to a %s name", c, name, c)
			}
		}
	case Superglobal:
		if value != nil {
			if _, ok := value.(map[string]any); !ok {
				return defErr("superglobal %s must be defined as a map", name)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[c].definitions[key] = value
	return nil
}

// DefineMap registers every entry of defs.
func (s *Store) DefineMap(c Category, defs map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		if err := s.Define(c, name, defs[name]); err != nil {
			return err
		}
	}
	return nil
}

// DefineFunc registers a host function.
func (s *Store) DefineFunc(name string, fn Func) error { return s.Define(Function, name, fn) }

// DefineConst registers a constant value.
func (s *Store) DefineConst(name string, value any) error { return s.Define(Constant, name, value) }

// DefineMagicConst registers the value of a magic constant. A func() any or
// Func value is invoked when the constant is read.
func (s *Store) DefineMagicConst(name string, value any) error {
	return s.Define(MagicConstant, name, value)
}

// DefineVar registers a predefined variable.
func (s *Store) DefineVar(name string, value any) error { return s.Define(Variable, name, value) }

// DefineSuperglobal replaces the contents of a superglobal.
func (s *Store) DefineSuperglobal(name string, value map[string]any) error {
	return s.Define(Superglobal, name, value)
}

// DefineNamespace registers a known namespace.
func (s *Store) DefineNamespace(name string) error { return s.Define(Namespace, name, name) }

// DefineAlias registers an alias for target.
func (s *Store) DefineAlias(name, target string) error { return s.Define(Alias, name, target) }

// DefineClass redefines a class name to replacement. An empty replacement
// marks the class as known without substitution.
func (s *Store) DefineClass(name, replacement string) error {
	return s.Define(Class, name, replacement)
}

// DefineInterface redefines an interface name to replacement.
func (s *Store) DefineInterface(name, replacement string) error {
	return s.Define(Interface, name, replacement)
}

// DefineTrait redefines a trait name to replacement.
func (s *Store) DefineTrait(name, replacement string) error {
	return s.Define(Trait, name, replacement)
}

// Undefine removes a definition.
func (s *Store) Undefine(c Category, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, err := s.category(c); err == nil {
		delete(r.definitions, Normalize(c, name))
	}
}

// SetValidator installs a custom validator for c.
func (s *Store) SetValidator(c Category, fn ValidatorFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.category(c)
	if err != nil {
		return err
	}
	r.validator = fn
	return nil
}

// ClearValidator removes the custom validator of c.
func (s *Store) ClearValidator(c Category) {
	_ = s.SetValidator(c, nil)
}

// SetDefaultAllow sets the outcome for names of c when neither list is configured.
func (s *Store) SetDefaultAllow(c Category, allow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultAllow[c] = allow
}

// Decide evaluates the policy of c for name and optional sub-key.
//
// A custom validator is authoritative. Otherwise definitions allow, a
// non-empty whitelist admits only its members, a non-empty blacklist rejects
// its members, and the category default applies last.
func (s *Store) Decide(c Category, name, key string) Decision {
	normalized := Normalize(c, name)
	key = NormalizeKey(key)
	if normalized == "" {
		return deny(c.Code(sbErrors.RangeValid), "sandboxed code attempted to reference an unnamed %s", c)
	}

	s.mu.RLock()
	r, ok := s.rules[c]
	if !ok {
		s.mu.RUnlock()
		return deny(sbErrors.CodeParse, "unknown policy category %q", c)
	}
	validator := r.validator
	s.mu.RUnlock()

	if validator != nil {
		if validator(normalized, Context{Category: c, Raw: name, Key: key}) {
			return allowed
		}
		return deny(c.Code(sbErrors.RangeValid), "%s %s failed custom validation", c, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := r.definitions[normalized]; ok {
		return allowed
	}
	if len(r.whitelist) > 0 {
		if keys, ok := r.whitelist[normalized]; ok && keys.covers(key) {
			return allowed
		}
		return deny(c.Code(sbErrors.RangeWhitelist), "%s %s is not whitelisted", c, displayName(name, key))
	}
	if len(r.blacklist) > 0 {
		if keys, ok := r.blacklist[normalized]; ok && keys.blocks(key) {
			return deny(c.Code(sbErrors.RangeBlacklist), "%s %s is blacklisted", c, displayName(name, key))
		}
		return allowed
	}
	if s.defaultAllow[c] {
		return allowed
	}
	return deny(c.Code(sbErrors.RangeValid), "%s %s is not allowed: no policy is configured", c, name)
}

// covers reports whether a whitelist entry admits key. Entries with sub-keys
// admit the symbol itself; its contents are filtered at run time.
func (k keySet) covers(key string) bool {
	if len(k) == 0 || key == "" {
		return true
	}
	_, ok := k[key]
	return ok
}

// blocks reports whether a blacklist entry rejects key. Entries with sub-keys
// only reject those keys.
func (k keySet) blocks(key string) bool {
	if len(k) == 0 {
		return true
	}
	_, ok := k[key]
	return key != "" && ok
}

func displayName(name, key string) string {
	if key == "" {
		return name
	}
	return name + "[" + key + "]"
}

// HasWhitelist reports whether c has a non-empty whitelist.
func (s *Store) HasWhitelist(c Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	return ok && len(r.whitelist) > 0
}

// HasBlacklist reports whether c has a non-empty blacklist.
func (s *Store) HasBlacklist(c Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	return ok && len(r.blacklist) > 0
}

// HasValidator reports whether c has a custom validator.
func (s *Store) HasValidator(c Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	return ok && r.validator != nil
}

// IsWhitelisted reports whether name is on the whitelist of c.
func (s *Store) IsWhitelisted(c Category, name string) bool {
	return s.member(c, name, func(r *rules) map[string]keySet { return r.whitelist })
}

// IsBlacklisted reports whether name is on the blacklist of c.
func (s *Store) IsBlacklisted(c Category, name string) bool {
	return s.member(c, name, func(r *rules) map[string]keySet { return r.blacklist })
}

func (s *Store) member(c Category, name string, list func(*rules) map[string]keySet) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	if !ok {
		return false
	}
	_, ok = list(r)[Normalize(c, name)]
	return ok
}

// WhitelistKeys returns the whitelisted sub-keys of name, sorted.
func (s *Store) WhitelistKeys(c Category, name string) []string {
	return s.keys(c, name, func(r *rules) map[string]keySet { return r.whitelist })
}

// BlacklistKeys returns the blacklisted sub-keys of name, sorted.
func (s *Store) BlacklistKeys(c Category, name string) []string {
	return s.keys(c, name, func(r *rules) map[string]keySet { return r.blacklist })
}

func (s *Store) keys(c Category, name string, list func(*rules) map[string]keySet) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(list(r)[Normalize(c, name)]))
}

// IsDefined reports whether name has a definition in c.
func (s *Store) IsDefined(c Category, name string) bool {
	_, ok := s.Definition(c, name)
	return ok
}

// Definition returns the definition of name in c.
func (s *Store) Definition(c Category, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[c]
	if !ok {
		return nil, false
	}
	v, ok := r.definitions[Normalize(c, name)]
	return v, ok
}

// Snapshot is a point-in-time copy of the names held by a store.
type Snapshot struct {
	Whitelist   map[Category][]string
	Blacklist   map[Category][]string
	Definitions map[Category][]string
	Validators  []Category
}

// Snapshot copies the names currently held by the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Whitelist:   make(map[Category][]string),
		Blacklist:   make(map[Category][]string),
		Definitions: make(map[Category][]string),
	}
	for _, c := range categories {
		r := s.rules[c]
		if len(r.whitelist) > 0 {
			snap.Whitelist[c] = slices.Sorted(maps.Keys(r.whitelist))
		}
		if len(r.blacklist) > 0 {
			snap.Blacklist[c] = slices.Sorted(maps.Keys(r.blacklist))
		}
		if len(r.definitions) > 0 {
			snap.Definitions[c] = slices.Sorted(maps.Keys(r.definitions))
		}
		if r.validator != nil {
			snap.Validators = append(snap.Validators, c)
		}
	}
	return snap
}

// Fingerprint returns a stable digest of the store contents. Definition
// values contribute their type, and validators their presence, because
// neither can be compared by value.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	writeList := func(label string, l map[string]keySet) {
		for _, name := range slices.Sorted(maps.Keys(l)) {
			fmt.Fprintf(&sb, "%s %s %s\n", label, name, strings.Join(slices.Sorted(maps.Keys(l[name])), ","))
		}
	}
	for _, c := range categories {
		r := s.rules[c]
		fmt.Fprintf(&sb, "[%s] default=%t validator=%t\n", c, s.defaultAllow[c], r.validator != nil)
		writeList("w", r.whitelist)
		writeList("b", r.blacklist)
		for _, name := range slices.Sorted(maps.Keys(r.definitions)) {
			v := r.definitions[name]
			switch v.(type) {
			case string, bool, int, int64, float64, nil:
				fmt.Fprintf(&sb, "d %s %T %v\n", name, v, v)
			default:
				fmt.Fprintf(&sb, "d %s %T\n", name, v)
			}
		}
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func asFunc(v any) (Func, bool) {
	switch fn := v.(type) {
	case Func:
		return fn, fn != nil
	case func(args ...any) (any, error):
		return fn, fn != nil
	case func() any:
		return func(...any) (any, error) { return fn(), nil }, fn != nil
	}
	return nil, false
}
