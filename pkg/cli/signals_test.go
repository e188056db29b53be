package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Error("Context should not be cancelled initially")
	case <-time.After(10 * time.Millisecond):
	}

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("stop() should cancel the context")
	}
}

func TestSetupSignalHandlerParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("cancelling the parent should cancel the context")
	}
}

func TestReloadSignals(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}

	sig, stop := ReloadSignals()
	defer stop()

	select {
	case <-sig:
		t.Fatal("Signal channel should be empty initially")
	case <-time.After(10 * time.Millisecond):
	}

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGHUP)

	select {
	case s := <-sig:
		if s != syscall.SIGHUP {
			t.Errorf("Expected SIGHUP, got %v", s)
		}
	case <-time.After(500 * time.Millisecond):
		t.Skip("Signal not received within timeout")
	}
}
