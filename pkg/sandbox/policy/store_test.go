package policy

import (
	"sync"
	"testing"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

func TestStore_Decide(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(s *Store)
		category  Category
		symbol    string
		key       string
		wantAllow bool
		wantCode  sbErrors.Code
	}{
		{
			name:      "whitelisted function after normalization",
			setup:     func(s *Store) { _ = s.Allow(Function, "is_array") },
			category:  Function,
			symbol:    "IS_ARRAY",
			wantAllow: true,
		},
		{
			name:     "function outside whitelist",
			setup:    func(s *Store) { _ = s.Allow(Function, "is_array") },
			category: Function,
			symbol:   "exec",
			wantCode: 300,
		},
		{
			name: "whitelist wins over blacklist",
			setup: func(s *Store) {
				_ = s.Allow(Function, "strlen")
				_ = s.Deny(Function, "exec")
			},
			category: Function,
			symbol:   "exec",
			wantCode: 300,
		},
		{
			name:     "blacklisted function",
			setup:    func(s *Store) { _ = s.Deny(Function, "exec") },
			category: Function,
			symbol:   "EXEC",
			wantCode: 400,
		},
		{
			name:      "blacklist allows non-members",
			setup:     func(s *Store) { _ = s.Deny(Function, "exec") },
			category:  Function,
			symbol:    "strlen",
			wantAllow: true,
		},
		{
			name:     "default deny without policy",
			setup:    func(s *Store) {},
			category: Function,
			symbol:   "strlen",
			wantCode: 200,
		},
		{
			name:     "magic constant without policy",
			setup:    func(s *Store) {},
			category: MagicConstant,
			symbol:   "__LINE__",
			wantCode: 205,
		},
		{
			name: "definition overrides blacklist",
			setup: func(s *Store) {
				_ = s.Deny(Function, "custom")
				_ = s.DefineFunc("custom", func(...any) (any, error) { return nil, nil })
			},
			category:  Function,
			symbol:    "Custom",
			wantAllow: true,
		},
		{
			name: "definition overrides whitelist",
			setup: func(s *Store) {
				_ = s.Allow(Constant, "A")
				_ = s.DefineConst("B", 2)
			},
			category:  Constant,
			symbol:    "B",
			wantAllow: true,
		},
		{
			name:      "keyword synonym collapses",
			setup:     func(s *Store) { _ = s.Allow(Keyword, "if") },
			category:  Keyword,
			symbol:    "elseif",
			wantAllow: true,
		},
		{
			name:      "keywords allowed by default",
			setup:     func(s *Store) {},
			category:  Keyword,
			symbol:    "echo",
			wantAllow: true,
		},
		{
			name:      "variables follow default allow",
			setup:     func(s *Store) { s.SetDefaultAllow(Variable, true) },
			category:  Variable,
			symbol:    "x",
			wantAllow: true,
		},
		{
			name: "validator is authoritative",
			setup: func(s *Store) {
				_ = s.Allow(Function, "strlen")
				_ = s.SetValidator(Function, func(name string, ctx Context) bool { return name == "exec" })
			},
			category:  Function,
			symbol:    "EXEC",
			wantAllow: true,
		},
		{
			name: "validator rejection is a policy denial",
			setup: func(s *Store) {
				_ = s.SetValidator(Function, func(string, Context) bool { return false })
			},
			category: Function,
			symbol:   "strlen",
			wantCode: 200,
		},
		{
			name:     "unnamed symbol",
			setup:    func(s *Store) { _ = s.Allow(Function, "strlen") },
			category: Function,
			symbol:   "",
			wantCode: 200,
		},
		{
			name:      "superglobal key whitelist admits listed key",
			setup:     func(s *Store) { _ = s.AllowKeys(Superglobal, "_GET", []string{"page"}) },
			category:  Superglobal,
			symbol:    "_GET",
			key:       "page",
			wantAllow: true,
		},
		{
			name:     "superglobal key whitelist rejects other key",
			setup:    func(s *Store) { _ = s.AllowKeys(Superglobal, "_GET", []string{"page"}) },
			category: Superglobal,
			symbol:   "_get",
			key:      "secret",
			wantCode: 303,
		},
		{
			name:      "superglobal keys are folded on write and read",
			setup:     func(s *Store) { _ = s.AllowKeys(Superglobal, "_GET", []string{" page "}) },
			category:  Superglobal,
			symbol:    "_GET",
			key:       "ｐａｇｅ",
			wantAllow: true,
		},
		{
			name:     "superglobal keys keep their case",
			setup:    func(s *Store) { _ = s.AllowKeys(Superglobal, "_GET", []string{"page"}) },
			category: Superglobal,
			symbol:   "_GET",
			key:      "Page",
			wantCode: 303,
		},
		{
			name:      "superglobal key blacklist leaves whole symbol readable",
			setup:     func(s *Store) { _ = s.DenyKeys(Superglobal, "_SERVER", []string{"SECRET"}) },
			category:  Superglobal,
			symbol:    "_SERVER",
			wantAllow: true,
		},
		{
			name:     "superglobal key blacklist rejects listed key",
			setup:    func(s *Store) { _ = s.DenyKeys(Superglobal, "_SERVER", []string{"SECRET"}) },
			category: Superglobal,
			symbol:   "_SERVER",
			key:      "SECRET",
			wantCode: 403,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.setup(s)
			d := s.Decide(tt.category, tt.symbol, tt.key)
			if d.Allowed != tt.wantAllow {
				t.Fatalf("Decide() allowed = %v, want %v (%s)", d.Allowed, tt.wantAllow, d.Reason)
			}
			if !tt.wantAllow && d.Code != tt.wantCode {
				t.Errorf("Decide() code = %d, want %d", d.Code, tt.wantCode)
			}
			if err := d.Err(tt.category, tt.symbol); (err == nil) != tt.wantAllow {
				t.Errorf("Err() = %v, allowed %v", err, tt.wantAllow)
			}
		})
	}
}

func TestStore_DefineErrors(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		symbol   string
		value    any
		wantCode sbErrors.Code
	}{
		{"unnamed", Constant, "", 1, 104},
		{"uncallable function", Function, "f", "not a func", 100},
		{"keyword cannot be defined", Keyword, "if", nil, 111},
		{"alias without target", Alias, "Foo", "", 107},
		{"class redefined to non-name", Class, "Foo", 42, 108},
		{"superglobal not a map", Superglobal, "_GET", "x", 103},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStore().Define(tt.category, tt.symbol, tt.value)
			if err == nil {
				t.Fatal("Define() expected error")
			}
			if got := sbErrors.CodeOf(err); got != tt.wantCode {
				t.Errorf("Define() code = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestStore_Definitions(t *testing.T) {
	s := NewStore()
	if err := s.DefineAlias("Str", `App\Util\Str`); err != nil {
		t.Fatalf("DefineAlias() error = %v", err)
	}
	v, ok := s.Definition(Alias, "STR")
	if !ok || v != `app\util\str` {
		t.Errorf("Definition(alias) = %v, %v; want normalized target", v, ok)
	}

	if err := s.DefineFunc("Greet", func(args ...any) (any, error) { return "hi", nil }); err != nil {
		t.Fatalf("DefineFunc() error = %v", err)
	}
	v, _ = s.Definition(Function, "greet")
	fn, ok := v.(Func)
	if !ok {
		t.Fatalf("Definition(function) type = %T, want Func", v)
	}
	if out, _ := fn(); out != "hi" {
		t.Errorf("defined function returned %v", out)
	}

	s.Undefine(Function, "GREET")
	if s.IsDefined(Function, "greet") {
		t.Error("Undefine() did not remove the definition")
	}
}

func TestStore_ListMaintenance(t *testing.T) {
	s := NewStore()
	_ = s.AllowList(Function, []string{"A", "b"})
	if !s.HasWhitelist(Function) || !s.IsWhitelisted(Function, "a") {
		t.Fatal("AllowList() did not whitelist normalized names")
	}
	s.Unallow(Function, "A")
	if s.IsWhitelisted(Function, "a") {
		t.Error("Unallow() did not remove the name")
	}
	s.ClearWhitelist(Function)
	if s.HasWhitelist(Function) {
		t.Error("ClearWhitelist() left entries")
	}

	_ = s.DenyList(Class, []string{"Reflection"})
	s.Undeny(Class, "REFLECTION")
	if s.HasBlacklist(Class) {
		t.Error("Undeny() did not remove the name")
	}
	_ = s.Deny(Class, "X")
	s.ClearBlacklist(Class)
	if s.HasBlacklist(Class) {
		t.Error("ClearBlacklist() left entries")
	}

	_ = s.AllowKeys(Superglobal, "_GET", []string{"b", "a"})
	if got := s.WhitelistKeys(Superglobal, "GET"); len(got) != 2 || got[0] != "a" {
		t.Errorf("WhitelistKeys() = %v, want [a b]", got)
	}
}

func TestStore_Fingerprint(t *testing.T) {
	a, b := NewStore(), NewStore()
	_ = a.AllowList(Function, []string{"strlen", "is_array"})
	_ = b.AllowList(Function, []string{"IS_ARRAY", "strlen"})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equivalent stores have different fingerprints")
	}

	_ = b.Deny(Class, "X")
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different stores share a fingerprint")
	}

	before := a.Fingerprint()
	_ = a.SetValidator(Variable, func(string, Context) bool { return true })
	if a.Fingerprint() == before {
		t.Error("installing a validator did not change the fingerprint")
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore()
	_ = s.Allow(Function, "strlen")
	_ = s.DefineConst("APP", 1)
	snap := s.Snapshot()

	_ = s.Allow(Function, "later")
	if len(snap.Whitelist[Function]) != 1 || snap.Whitelist[Function][0] != "strlen" {
		t.Errorf("Snapshot().Whitelist = %v", snap.Whitelist[Function])
	}
	if len(snap.Definitions[Constant]) != 1 {
		t.Errorf("Snapshot().Definitions = %v", snap.Definitions)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Allow(Function, "f")
				s.Decide(Function, "f", "")
				_ = s.Fingerprint()
			}
		}()
	}
	wg.Wait()
	if !s.Decide(Function, "f", "").Allowed {
		t.Error("concurrent writes lost the whitelist entry")
	}
}
