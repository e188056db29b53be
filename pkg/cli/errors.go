package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by the bastion command.
const (
	ExitOK       = 0
	ExitRejected = 1
	ExitFailure  = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RejectedError reports that one or more inputs failed policy checks. The
// command itself ran to completion.
type RejectedError struct {
	Rejected int
	Total    int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%d of %d rejected", e.Rejected, e.Total)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return ExitRejected
	}
	return ExitFailure
}
