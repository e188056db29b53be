package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/bastion/pkg/cli"
)

func setCheckFlags(policy, format string) {
	checkFlags.policy = policy
	checkFlags.format = format
	checkFlags.output = false
	checkFlags.progress = false
}

func TestRunCheck_Valid(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	program := writeFile(t, dir, "job.yaml", validProgram)

	setCheckFlags(policyFile, "text")
	checkFlags.output = true

	cmd, out := testCommand()
	if err := runCheck(cmd, []string{program}); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	if !strings.Contains(out.String(), "✓ "+program) {
		t.Errorf("output missing passing program:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "strlen(") {
		t.Errorf("output missing rewritten code:\n%s", out.String())
	}
}

func TestRunCheck_Rejected(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	writeFile(t, dir, "jobs/ok.yaml", validProgram)
	writeFile(t, dir, "jobs/bad.yaml", rejectedProgram)

	setCheckFlags(policyFile, "json")

	cmd, out := testCommand()
	err := runCheck(cmd, []string{filepath.Join(dir, "jobs")})

	var rejected *cli.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("runCheck() error = %v, want RejectedError", err)
	}
	if rejected.Rejected != 1 || rejected.Total != 2 {
		t.Errorf("RejectedError = %+v, want 1 of 2", rejected)
	}
	if cli.ExitCode(err) != cli.ExitRejected {
		t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitRejected)
	}

	var report checkReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	byFile := map[string]checkResult{}
	for _, r := range report.Results {
		byFile[filepath.Base(r.File)] = r
	}
	bad := byFile["bad.yaml"]
	if bad.Status != statusRejected || bad.Name != "exec" || bad.Line != 4 {
		t.Errorf("bad.yaml result = %+v", bad)
	}
	if bad.Code < 300 || bad.Code >= 400 {
		t.Errorf("bad.yaml code = %d, want a whitelist code", bad.Code)
	}
	if byFile["ok.yaml"].Status != statusValid {
		t.Errorf("ok.yaml result = %+v", byFile["ok.yaml"])
	}
	if report.Revision == "" {
		t.Error("report has no policy revision")
	}
}

func TestRunCheck_CachesIdenticalPrograms(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	first := writeFile(t, dir, "a.yaml", validProgram)
	second := writeFile(t, dir, "b.yaml", validProgram)

	setCheckFlags(policyFile, "csv")

	cmd, out := testCommand()
	if err := runCheck(cmd, []string{first, second}); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d CSV lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], first+",valid") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], second+",cached") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestRunCheck_Errors(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		program string
		wantErr string
	}{
		{
			name:    "missing policy",
			policy:  "missing.yaml",
			program: validProgram,
			wantErr: "failed to read policy file",
		},
		{
			name:    "invalid policy",
			policy:  "whitelist:\n  bogus: [x]\n",
			program: validProgram,
			wantErr: "bogus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals(t)
			dir := t.TempDir()
			policyFile := filepath.Join(dir, tt.policy)
			if tt.policy != "missing.yaml" {
				policyFile = writeFile(t, dir, "policy.yaml", tt.policy)
			}
			program := writeFile(t, dir, "job.yaml", tt.program)

			setCheckFlags(policyFile, "text")
			cmd, _ := testCommand()
			err := runCheck(cmd, []string{program})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("runCheck() error = %v, want %q", err, tt.wantErr)
			}
			if cli.ExitCode(err) != cli.ExitFailure {
				t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitFailure)
			}
		})
	}
}

func TestRunCheck_UnreadableProgram(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	program := writeFile(t, dir, "broken.yaml", "kind: [")

	setCheckFlags(policyFile, "text")
	cmd, out := testCommand()
	err := runCheck(cmd, []string{program})

	var rejected *cli.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("runCheck() error = %v, want RejectedError", err)
	}
	if !strings.Contains(out.String(), "! "+program) {
		t.Errorf("output missing error line:\n%s", out.String())
	}
}

func TestProgramFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validProgram)
	writeFile(t, dir, "nested/b.json", "{}")
	writeFile(t, dir, "notes.txt", "ignored")

	files, err := programFiles([]string{dir})
	if err != nil {
		t.Fatalf("programFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Errorf("programFiles() = %v, want 2 files", files)
	}

	if _, err := programFiles([]string{t.TempDir()}); err == nil {
		t.Error("programFiles() on an empty directory should fail")
	}
}

func TestCheckReport_Rows(t *testing.T) {
	report := &checkReport{Results: []checkResult{
		{File: "a.yaml", Status: statusValid},
		{File: "b.yaml", Status: statusRejected, Code: 300, Category: "function", Name: "exec", Line: 4, Message: "not whitelisted"},
	}}

	rows := report.Rows()
	if len(rows) != 2 {
		t.Fatalf("Rows() returned %d rows", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "a.yaml,valid,,,,," {
		t.Errorf("row 0 = %q", got)
	}
	if got := strings.Join(rows[1], ","); got != "b.yaml,rejected,300,function,exec,4,not whitelisted" {
		t.Errorf("row 1 = %q", got)
	}
	if len(report.Header()) != len(rows[0]) {
		t.Error("header and row widths differ")
	}
	if !strings.Contains(report.String(), "2 checked, 1 passed, 1 rejected, 0 errors") {
		t.Errorf("String() = %q", report.String())
	}
}
