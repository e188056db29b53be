// Package logging builds the structured loggers used across Bastion.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware records carrying the sandbox ID and policy revision
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRevision(ctx, revision)
//	logger.InfoContext(ctx, "policy reloaded")  // Includes policy_revision
package logging
