package main

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

func TestRunPolicyLint(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yaml", testPolicy)
	unknown := writeFile(t, dir, "unknown.yaml", "whitelist:\n  bogus: [x]\nblacklist:\n  nonsense: [y]\n")
	malformed := writeFile(t, dir, "malformed.yaml", "whitelist: [")

	tests := []struct {
		name       string
		files      []string
		wantReject int
		wantOutput []string
	}{
		{
			name:       "valid document",
			files:      []string{valid},
			wantOutput: []string{"✓ " + valid, "1 files, 0 invalid"},
		},
		{
			name:       "unknown categories",
			files:      []string{valid, unknown},
			wantReject: 1,
			wantOutput: []string{"✗ " + unknown, "bogus", "nonsense"},
		},
		{
			name:       "malformed and missing",
			files:      []string{malformed, dir + "/missing.yaml"},
			wantReject: 2,
			wantOutput: []string{"failed to parse policy document", "2 files, 2 invalid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policyFlags.format = "text"
			cmd, out := testCommand()
			err := runPolicyLint(cmd, tt.files)

			if tt.wantReject == 0 {
				if err != nil {
					t.Fatalf("runPolicyLint() error = %v", err)
				}
			} else {
				var rejected *cli.RejectedError
				if !errors.As(err, &rejected) || rejected.Rejected != tt.wantReject {
					t.Fatalf("runPolicyLint() error = %v, want %d rejected", err, tt.wantReject)
				}
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestRunPolicyShow(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", `
whitelist:
  function: [StrLen, str_replace]
blacklist:
  class: [ReflectionClass]
definitions:
  constant:
    APP_VERSION: "1.2.0"
`)
	t.Setenv("BASTION_SANDBOX_POLICY_FILE_PATH", policyFile)

	policyFlags.format = "json"
	cmd, out := testCommand()
	if err := runPolicyShow(cmd, nil); err != nil {
		t.Fatalf("runPolicyShow() error = %v", err)
	}

	var view policyView
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got := view.Whitelist["function"]; !slices.Equal(got, []string{"str_replace", "strlen"}) {
		t.Errorf("function whitelist = %v", got)
	}
	if got := view.Blacklist["class"]; len(got) != 1 {
		t.Errorf("class blacklist = %v", got)
	}
	if got := view.Definitions["constant"]; len(got) != 1 {
		t.Errorf("constant definitions = %v", got)
	}
	if view.Revision == "" {
		t.Error("view has no revision")
	}
}

func TestPolicyView_String(t *testing.T) {
	view := newPolicyView("abc123", policy.Snapshot{
		Whitelist:  map[policy.Category][]string{policy.Function: {"strlen"}},
		Validators: []policy.Category{policy.Superglobal},
	})
	got := view.String()
	for _, want := range []string{"Revision: abc123", "Whitelist:", "function: strlen", "Validators: superglobal"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Blacklist:") {
		t.Errorf("String() printed an empty section:\n%s", got)
	}
}
