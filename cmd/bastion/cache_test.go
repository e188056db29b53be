package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
)

// populateCache checks one valid program against the configured cache and
// returns the policy identity it was cached under.
func populateCache(t *testing.T, dir string) string {
	t.Helper()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	program := writeFile(t, dir, "job.yaml", validProgram)

	setCheckFlags(policyFile, "json")
	cmd, out := testCommand()
	if err := runCheck(cmd, []string{program}); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	var report checkReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	return report.Identity
}

func runCacheCommand(t *testing.T, run func(*cobra.Command, []string) error) (string, error) {
	t.Helper()
	cmd, out := testCommand()
	err := run(cmd, nil)
	return out.String(), err
}

func TestCacheCommands_SQLite(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	t.Setenv("BASTION_SANDBOX_ID", "cache-test")
	t.Setenv("BASTION_CACHE_BACKEND", "sqlite")
	t.Setenv("BASTION_CACHE_SQLITE_PATH", filepath.Join(dir, "data", "cache.db"))

	identity := populateCache(t, dir)
	if identity == "" {
		t.Fatal("check report has no identity")
	}

	out, err := runCacheCommand(t, runCacheStats)
	if err != nil {
		t.Fatalf("runCacheStats() error = %v", err)
	}
	if !strings.Contains(out, "Backend: sqlite") || !strings.Contains(out, "Entries: 1") {
		t.Errorf("stats output = %q", out)
	}

	cacheFlags.identity, cacheFlags.all = "", false
	out, err = runCacheCommand(t, runCachePurge)
	if err != nil {
		t.Fatalf("runCachePurge() error = %v", err)
	}
	if !strings.Contains(out, "Removed 0 expired entries") {
		t.Errorf("purge output = %q", out)
	}

	cacheFlags.identity = identity
	out, err = runCacheCommand(t, runCachePurge)
	if err != nil {
		t.Fatalf("runCachePurge(--identity) error = %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries for identity "+identity) {
		t.Errorf("purge output = %q", out)
	}

	cacheFlags.identity, cacheFlags.all = "", true
	if _, err := runCacheCommand(t, runCachePurge); err == nil || !strings.Contains(err.Error(), "cannot be cleared") {
		t.Errorf("runCachePurge(--all) error = %v, want unsupported", err)
	}
	cacheFlags.all = false
}

func TestCacheCommands_Redis(t *testing.T) {
	resetGlobals(t)
	mr := miniredis.RunT(t)
	t.Setenv("BASTION_SANDBOX_ID", "cache-test")
	t.Setenv("BASTION_CACHE_BACKEND", "redis")
	t.Setenv("BASTION_CACHE_REDIS_ADDRESS", mr.Addr())

	populateCache(t, t.TempDir())

	out, err := runCacheCommand(t, runCacheStats)
	if err != nil {
		t.Fatalf("runCacheStats() error = %v", err)
	}
	if !strings.Contains(out, "Entries: 1") {
		t.Errorf("stats output = %q", out)
	}

	cacheFlags.identity, cacheFlags.all = "", false
	out, err = runCacheCommand(t, runCachePurge)
	if err != nil {
		t.Fatalf("runCachePurge() error = %v", err)
	}
	if !strings.Contains(out, "expires entries on its own") {
		t.Errorf("purge output = %q", out)
	}

	cacheFlags.all = true
	out, err = runCacheCommand(t, runCachePurge)
	cacheFlags.all = false
	if err != nil {
		t.Fatalf("runCachePurge(--all) error = %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries") {
		t.Errorf("purge output = %q", out)
	}
}

func TestCacheCommands_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		all     bool
		id      string
		wantErr string
	}{
		{name: "disabled", env: map[string]string{"BASTION_CACHE_ENABLED": "false"}, wantErr: "disabled"},
		{name: "memory backend", env: map[string]string{"BASTION_CACHE_BACKEND": "memory"}, wantErr: "does not outlive"},
		{name: "conflicting flags", all: true, id: "abc", wantErr: "cannot be combined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cacheFlags.all, cacheFlags.identity = tt.all, tt.id
			defer func() { cacheFlags.all, cacheFlags.identity = false, "" }()

			_, err := runCacheCommand(t, runCachePurge)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("runCachePurge() error = %v, want %q", err, tt.wantErr)
			}
			if cli.ExitCode(err) != cli.ExitFailure {
				t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitFailure)
			}
		})
	}
}
