package policy

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		category Category
		input    string
		want     string
	}{
		{Function, "IS_ARRAY", "is_array"},
		{Function, "ｅｘｅｃ", "exec"},
		{Function, "ex\u200bec", "exec"},
		{Variable, "MyVar", "myvar"},
		{Class, `App\Model`, `app\model`},
		{MagicConstant, "__line__", "LINE"},
		{MagicConstant, "_ LINE_", "LINE"},
		{Superglobal, "_ GET", "GET"},
		{MagicConstant, "__CLASS__", "CLASS"},
		{Superglobal, "_get", "GET"},
		{Superglobal, "GLOBALS", "GLOBALS"},
		{Constant, "My_Const", "My_Const"},
		{Keyword, "DIE", "exit"},
		{Keyword, "require_once", "include"},
		{Keyword, "elseif", "if"},
		{Keyword, "print", "echo"},
		{Keyword, "finally", "try"},
		{Keyword, "foreach", "for"},
		{Keyword, "alias", "use"},
		{Keyword, "while", "while"},
		{Operator, "++", "++n"},
		{Operator, "++n", "++n"},
		{Operator, "n++", "n++"},
		{Operator, "--n", "--n"},
		{Operator, "n--", "n--"},
		{Operator, "+=", "+n"},
		{Operator, "-n", "-n"},
		{Operator, "+", "+"},
		{Operator, "AND", "and"},
		{Primitive, "DOUBLE", "float"},
		{Primitive, "integer", "int"},
		{Primitive, "Bool", "bool"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.input, func(t *testing.T) {
			if got := Normalize(tt.category, tt.input); got != tt.want {
				t.Errorf("Normalize(%s, %q) = %q, want %q", tt.category, tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"IS_ARRAY", "__FILE__", "_SERVER", "___x___", "DoUbLe", "Integer", "die",
		"require_once", "n++", "--", "+=", "-", "ｆｏｏ", `\App\Foo`, "  spaced  ", "",
		"_ LINE_", "_ GET", "__ _FILE_ __", "\u200b foo", "foo \u200b",
	}
	for _, c := range Categories() {
		for _, in := range inputs {
			once := Normalize(c, in)
			if twice := Normalize(c, once); twice != once {
				t.Errorf("Normalize(%s) not idempotent for %q: %q then %q", c, in, once, twice)
			}
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList(Keyword, []string{"ELSE", "case", "do"})
	want := []string{"if", "switch", "while"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{input: "function", want: Function},
		{input: "functions", want: Function},
		{input: "classes", want: Class},
		{input: "aliases", want: Alias},
		{input: "meta-constants", want: MagicConstant},
		{input: "Superglobals", want: Superglobal},
		{input: "widgets", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategory_Index(t *testing.T) {
	if Function.Index() != 0 || Type.Index() != 14 || Keyword.Index() != 11 {
		t.Errorf("unexpected category indexes: function=%d keyword=%d type=%d",
			Function.Index(), Keyword.Index(), Type.Index())
	}
	if Category("nope").Index() != -1 {
		t.Error("unknown category should have index -1")
	}
}
