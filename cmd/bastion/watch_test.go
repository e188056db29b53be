package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"mercator-hq/bastion/pkg/config"
)

func newTestWatcher(t *testing.T, policyFile string, files []string) (*watcher, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Sandbox.ID = "watch-test"
	cfg.Sandbox.Policy.FilePath = policyFile
	cfg.Telemetry.Logging.Level = "error"

	a, err := newApp(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	watchFlags.format = "text"
	var out bytes.Buffer
	w := &watcher{app: a, files: files, out: &out}
	t.Cleanup(w.close)
	return w, &out
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	program := writeFile(t, dir, "job.yaml", rejectedProgram)

	w, out := newTestWatcher(t, policyFile, []string{program})
	ctx := context.Background()

	if err := w.reload(ctx); err != nil {
		t.Fatalf("first reload() error = %v", err)
	}
	if !strings.Contains(out.String(), "✗ "+program) {
		t.Errorf("first check output:\n%s", out.String())
	}
	first := w.sandbox
	firstRevision := w.revision

	out.Reset()
	if err := w.reload(ctx); err != nil {
		t.Fatalf("unchanged reload() error = %v", err)
	}
	if w.sandbox != first {
		t.Error("unchanged policy replaced the sandbox")
	}
	if out.Len() != 0 {
		t.Errorf("unchanged policy re-checked programs:\n%s", out.String())
	}

	if err := os.WriteFile(policyFile, []byte("whitelist:\n  function: [strlen, exec]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.reload(ctx); err != nil {
		t.Fatalf("changed reload() error = %v", err)
	}
	if w.sandbox == first || w.revision == firstRevision {
		t.Error("changed policy kept the old sandbox")
	}
	if !strings.Contains(out.String(), "✓ "+program) {
		t.Errorf("re-check output:\n%s", out.String())
	}
	if n := w.app.registry.Len(); n != 1 {
		t.Errorf("registry holds %d runtimes, want 1", n)
	}
}

func TestWatcher_ReloadKeepsSandboxOnBadPolicy(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)

	w, _ := newTestWatcher(t, policyFile, nil)
	ctx := context.Background()
	if err := w.reload(ctx); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	good := w.sandbox

	if err := os.WriteFile(policyFile, []byte("whitelist:\n  bogus: [x]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.reload(ctx); err == nil {
		t.Fatal("reload() with a bad policy should fail")
	}
	if w.sandbox != good {
		t.Error("bad policy replaced the sandbox")
	}
	if _, ok := w.app.registry.Get("watch-test"); !ok {
		t.Error("runtime was unregistered after a failed reload")
	}
}

func TestWatcherMux(t *testing.T) {
	dir := t.TempDir()
	policyFile := writeFile(t, dir, "policy.yaml", testPolicy)
	w, _ := newTestWatcher(t, policyFile, nil)

	srv := httptest.NewServer(w.mux())
	defer srv.Close()

	notReady, err := srv.Client().Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready error = %v", err)
	}
	notReady.Body.Close()
	if notReady.StatusCode != 503 {
		t.Errorf("GET /ready before load status = %d, want 503", notReady.StatusCode)
	}

	if err := w.reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "bastion_sandbox_policy_reloads_total") {
		t.Errorf("metrics output missing reload counter:\n%s", body)
	}

	ready, err := srv.Client().Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready error = %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != 200 {
		t.Errorf("GET /ready status = %d, want 200", ready.StatusCode)
	}
}
