package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	if _, err := NewWatcher("", 0, nil); err == nil {
		t.Error("NewWatcher(\"\") error = nil, want error")
	}

	w, err := NewWatcher(filepath.Join(t.TempDir(), "policy.yaml"), 0, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.debounce.interval != 100*time.Millisecond {
		t.Errorf("interval = %v, want 100ms", w.debounce.interval)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(testPolicy), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	called := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func() error {
			called <- struct{}{}
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-called:
		t.Fatal("reload called for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("whitelist:\n  function: [count]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("reload not called after modification")
	}
}

func TestWatcher_AlreadyRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	w, err := NewWatcher(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Watch(ctx, func() error { return nil })
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := w.Watch(ctx, func() error { return nil }); err == nil {
		t.Error("second Watch() error = nil, want error")
	}
	cancel()
	<-done
}

func TestDebouncer_Trigger(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var count atomic.Int32
	var last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		d.Trigger(func() {
			count.Add(1)
			last.Store(i)
		})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("callback count = %d, want 1", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("last callback = %d, want 5", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var count atomic.Int32
	d.Trigger(func() { count.Add(1) })
	d.Stop()
	d.Trigger(func() { count.Add(1) })
	time.Sleep(100 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("callback count = %d, want 0", got)
	}
}
