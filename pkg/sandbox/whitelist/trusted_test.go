package whitelist

import (
	"testing"

	"mercator-hq/bastion/pkg/sandbox/ast"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

func variable(name string) *ast.Node { return &ast.Node{Kind: ast.KindVariable, Name: name} }

func defineCall(name string) *ast.Node {
	return &ast.Node{Kind: ast.KindExprStmt, Expr: ast.NewFuncCall("define", []*ast.Node{
		ast.NewArg(ast.NewString(name, ast.Location{})),
		ast.NewArg(&ast.Node{Kind: ast.KindInt, Value: "1"}),
	}, ast.Location{})}
}

func trustedTree() *ast.Node {
	return &ast.Node{Kind: ast.KindFile, Stmts: []*ast.Node{
		{Kind: ast.KindUse, Items: []*ast.Node{
			{Kind: ast.KindUseItem, Name: `Vendor\Http\Client`},
			{Kind: ast.KindUseItem, Name: `Vendor\Log\Logger`, Alias: "Log"},
		}},
		{Kind: ast.KindNamespace, Name: `App\Helpers`, Stmts: []*ast.Node{
			{Kind: ast.KindFunction, Name: "helper", Stmts: []*ast.Node{
				{Kind: ast.KindReturn, Expr: variable("local")},
			}},
			{Kind: ast.KindClass, Name: "Widget"},
			{Kind: ast.KindInterface, Name: "Renderable"},
			{Kind: ast.KindTrait, Name: "Loggable"},
		}},
		defineCall("APP_VERSION"),
		{Kind: ast.KindGlobal, Items: []*ast.Node{variable("config")}},
		{Kind: ast.KindExprStmt, Expr: &ast.Node{Kind: ast.KindAssign, Left: variable("settings"), Right: &ast.Node{Kind: ast.KindArray}}},
	}}
}

func TestTrusted_Whitelists(t *testing.T) {
	store := policy.NewStore()
	root, err := Trusted(store, trustedTree())
	if err != nil {
		t.Fatalf("Trusted() error = %v", err)
	}

	tests := []struct {
		category policy.Category
		name     string
		want     bool
	}{
		{policy.Function, "helper", true},
		{policy.Class, "widget", true},
		{policy.Interface, "Renderable", true},
		{policy.Trait, "loggable", true},
		{policy.Constant, "APP_VERSION", true},
		{policy.Global, "config", true},
		{policy.Variable, "settings", true},
		{policy.Variable, "config", true},
		{policy.Variable, "local", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.name, func(t *testing.T) {
			if got := store.IsWhitelisted(tt.category, tt.name); got != tt.want {
				t.Errorf("IsWhitelisted(%s, %s) = %v, want %v", tt.category, tt.name, got, tt.want)
			}
		})
	}

	// use removed, namespace body spliced: function, class, interface, trait, define, global, assign
	if len(root.Stmts) != 7 {
		t.Fatalf("len(Stmts) = %d, want 7", len(root.Stmts))
	}
	if root.Stmts[0].Kind != ast.KindFunction {
		t.Errorf("first statement = %s, want function", root.Stmts[0].Kind)
	}
}

func TestTrusted_Definitions(t *testing.T) {
	store := policy.NewStore()
	if _, err := Trusted(store, trustedTree()); err != nil {
		t.Fatalf("Trusted() error = %v", err)
	}

	if !store.IsDefined(policy.Namespace, `app\helpers`) {
		t.Error("namespace was not registered")
	}
	tests := map[string]string{
		`Vendor\Http\Client`: "client",
		`Vendor\Log\Logger`:  "log",
	}
	for name, want := range tests {
		got, ok := store.Definition(policy.Alias, name)
		if !ok || got != want {
			t.Errorf("Definition(alias, %s) = %v, %v, want %s", name, got, ok, want)
		}
	}
}

func TestTrusted_BlacklistSuppresses(t *testing.T) {
	store := policy.NewStore()
	if err := store.Deny(policy.Function, "exec"); err != nil {
		t.Fatal(err)
	}
	if err := store.Deny(policy.Variable, "secret"); err != nil {
		t.Fatal(err)
	}
	if _, err := Trusted(store, trustedTree()); err != nil {
		t.Fatalf("Trusted() error = %v", err)
	}

	if store.HasWhitelist(policy.Function) {
		t.Error("function whitelist grew despite a blacklist")
	}
	if store.HasWhitelist(policy.Variable) {
		t.Error("variable whitelist grew despite a blacklist")
	}
	if !store.IsWhitelisted(policy.Class, "Widget") {
		t.Error("class whitelist should be unaffected by other blacklists")
	}
}
