package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{name: "with field", err: NewConfigError("cache.backend", "invalid"), want: "config error in cache.backend: invalid"},
		{name: "without field", err: NewConfigError("", "failed to load"), want: "config error: failed to load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("boom")
	err := NewCommandError("check", inner)

	if got := err.Error(); got != "command check failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is() should see the wrapped error")
	}
}

func TestRejectedError(t *testing.T) {
	err := &RejectedError{Rejected: 2, Total: 5}
	if got := err.Error(); got != "2 of 5 rejected" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "rejected", err: &RejectedError{Rejected: 1, Total: 1}, want: ExitRejected},
		{name: "wrapped rejected", err: fmt.Errorf("check: %w", &RejectedError{Rejected: 1, Total: 2}), want: ExitRejected},
		{name: "config", err: NewConfigError("", "bad"), want: ExitFailure},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
