package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/bastion/pkg/sandbox/ast"
)

func TestCode_Range(t *testing.T) {
	tests := []struct {
		code      Code
		wantRange Range
		wantIndex int
		wantLabel string
	}{
		{CodeParse, RangeMisc, -1, "parse"},
		{CodeAlias, RangeMisc, -1, "alias"},
		{CodeFor(RangeDefinition, 0), RangeDefinition, 0, "definition_0"},
		{CodeFor(RangeValid, 5), RangeValid, 5, "valid_5"},
		{CodeFor(RangeWhitelist, 11), RangeWhitelist, 11, "whitelist_11"},
		{CodeFor(RangeBlacklist, 14), RangeBlacklist, 14, "blacklist_14"},
	}

	for _, tt := range tests {
		t.Run(tt.wantLabel, func(t *testing.T) {
			if got := tt.code.Range(); got != tt.wantRange {
				t.Errorf("Range() = %v, want %v", got, tt.wantRange)
			}
			if got := tt.code.CategoryIndex(); got != tt.wantIndex {
				t.Errorf("CategoryIndex() = %d, want %d", got, tt.wantIndex)
			}
			if got := tt.code.String(); got != tt.wantLabel {
				t.Errorf("String() = %q, want %q", got, tt.wantLabel)
			}
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(CodeFor(RangeWhitelist, 0), "function", "exec", "function exec is not whitelisted").
		At(ast.Location{File: "a.php", Line: 3, Column: 7})

	want := "[300] function exec is not whitelisted at a.php:3:7"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_Chain(t *testing.T) {
	root := New(CodeFor(RangeBlacklist, 0), "function", "eval", "blacklisted")
	wrapped := Wrap(root, CodeParse, "outer")
	outer := fmt.Errorf("prepare: %w", wrapped)

	if !HasCode(outer, CodeFor(RangeBlacklist, 0)) {
		t.Error("HasCode() did not find the root code in the chain")
	}
	if got := CodeOf(outer); got != CodeParse {
		t.Errorf("CodeOf() = %d, want %d", got, CodeParse)
	}
	if got := wrapped.Root(); got != root {
		t.Errorf("Root() = %v, want %v", got, root)
	}
}

func TestReporter(t *testing.T) {
	violation := New(CodeCast, "", "", "casting is not allowed")

	t.Run("propagates without handler", func(t *testing.T) {
		r := NewReporter(nil)
		if err := r.Report(violation); err != violation {
			t.Errorf("Report() = %v, want original error", err)
		}
		if r.LastError() != violation {
			t.Error("LastError() did not retain the error")
		}
	})

	t.Run("handler recovers", func(t *testing.T) {
		r := NewReporter(nil)
		r.SetHandler(func(*Error) error { return nil })
		if err := r.Report(violation); err != nil {
			t.Errorf("Report() = %v, want nil", err)
		}
		if r.LastError() != violation {
			t.Error("LastError() must be retained after recovery")
		}
	})

	t.Run("handler replaces", func(t *testing.T) {
		r := NewReporter(nil)
		r.SetHandler(func(e *Error) error {
			return New(CodeParse, "", "", "replaced")
		})
		err := r.Report(violation)
		var got *Error
		if !stdErrors.As(err, &got) || got.Code != CodeParse {
			t.Fatalf("Report() = %v, want replacement", err)
		}
		if got.Root() != violation {
			t.Error("replacement does not chain the original violation")
		}
	})

	t.Run("handler returns foreign error", func(t *testing.T) {
		r := NewReporter(nil)
		sentinel := stdErrors.New("host abort")
		r.SetHandler(func(*Error) error { return sentinel })
		if err := r.Report(violation); err != sentinel {
			t.Errorf("Report() = %v, want %v", err, sentinel)
		}
	})
}

func TestExtractContext(t *testing.T) {
	source := "<?php\n$a = 1;\nexec('ls');\n$b = 2;\n"
	got := ExtractContext(source, ast.Location{Line: 3}, 1)

	for _, want := range []string{"  2 | $a = 1;", "> 3 | exec('ls');", "  4 | $b = 2;"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExtractContext() missing %q in:\n%s", want, got)
		}
	}
	if ExtractContext(source, ast.Location{}, 1) != "" {
		t.Error("ExtractContext() without line should be empty")
	}
	if ExtractContext(source, ast.Location{Line: 99}, 1) != "" {
		t.Error("ExtractContext() past end should be empty")
	}
}
