package policy

import (
	"strings"
	"testing"
)

const policyYAML = `
whitelist:
  functions: [strlen, IS_ARRAY]
  keyword: [if, echo]
blacklist:
  class: [ReflectionClass]
whitelist_keys:
  superglobal:
    _GET: [page]
definitions:
  constant:
    APP_VERSION: "1.2.0"
  alias:
    Str: App\Util\Str
  namespace:
    App: ~
`

func TestDocument_Apply(t *testing.T) {
	doc, err := ParseDocument([]byte(policyYAML))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	s := NewStore()
	if err := doc.Apply(s); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	checks := []struct {
		category Category
		name     string
		key      string
		want     bool
	}{
		{Function, "is_array", "", true},
		{Function, "exec", "", false},
		{Keyword, "elseif", "", true},
		{Class, "reflectionclass", "", false},
		{Class, "Foo", "", true},
		{Superglobal, "_GET", "page", true},
		{Superglobal, "_GET", "token", false},
		{Constant, "APP_VERSION", "", true},
		{Namespace, "app", "", true},
	}
	for _, c := range checks {
		if got := s.Decide(c.category, c.name, c.key).Allowed; got != c.want {
			t.Errorf("Decide(%s, %s, %q) = %v, want %v", c.category, c.name, c.key, got, c.want)
		}
	}
	if v, _ := s.Definition(Alias, "str"); v != `app\util\str` {
		t.Errorf("alias definition = %v", v)
	}
}

func TestDocument_Validate(t *testing.T) {
	doc, err := ParseDocument([]byte(`
whitelist:
  widgets: [a]
whitelist_keys:
  function:
    strlen: [x]
definitions:
  function:
    f: not-callable
`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	err = doc.Validate()
	if err == nil {
		t.Fatal("Validate() expected errors")
	}
	for _, want := range []string{"whitelist.widgets", "whitelist_keys.function", "definitions.function"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestParseDocument_Malformed(t *testing.T) {
	if _, err := ParseDocument([]byte("whitelist: [")); err == nil {
		t.Error("ParseDocument() expected error for malformed YAML")
	}
}
