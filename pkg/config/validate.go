package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "cache.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateSandbox(&cfg.Sandbox)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateSandbox(cfg *SandboxConfig) []FieldError {
	var errs []FieldError

	if err := cfg.Options.Validate(); err != nil {
		errs = append(errs, FieldError{Field: "sandbox.options", Message: err.Error()})
	}

	p := &cfg.Policy
	switch p.Mode {
	case "file":
		if p.FilePath == "" {
			errs = append(errs, FieldError{
				Field:   "sandbox.policy.file_path",
				Message: "file path is required in file mode",
			})
		}
	case "git":
		if p.Git.Repository == "" && p.Git.LocalPath == "" {
			errs = append(errs, FieldError{
				Field:   "sandbox.policy.git.repository",
				Message: "repository or local path is required in git mode",
			})
		}
		if p.Git.Path == "" {
			errs = append(errs, FieldError{
				Field:   "sandbox.policy.git.path",
				Message: "policy path is required in git mode",
			})
		}
		if p.Watch {
			errs = append(errs, FieldError{
				Field:   "sandbox.policy.watch",
				Message: "watch is only supported in file mode",
			})
		}
		if p.Git.Depth < 0 {
			errs = append(errs, FieldError{
				Field:   "sandbox.policy.git.depth",
				Message: "depth must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "sandbox.policy.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'file' or 'git'", p.Mode),
		})
	}
	if p.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "sandbox.policy.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "redis": true, "sqlite": true, "tiered": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'redis', 'sqlite', or 'tiered'", cfg.Backend),
		})
	}
	if cfg.TTL < 0 {
		errs = append(errs, FieldError{Field: "cache.ttl", Message: "ttl must be non-negative"})
	}
	if cfg.MaxEntries < 0 {
		errs = append(errs, FieldError{Field: "cache.max_entries", Message: "max entries must be non-negative"})
	}

	if cfg.Backend == "redis" || cfg.Backend == "tiered" {
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "cache.redis.address",
				Message: "address is required for the redis backend",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "cache.redis.db", Message: "db must be non-negative"})
		}
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "cache.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "cache.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.Purge.Enabled {
			if _, err := cron.ParseStandard(cfg.Purge.Schedule); err != nil {
				errs = append(errs, FieldError{
					Field:   "cache.purge.schedule",
					Message: fmt.Sprintf("invalid cron expression: %v", err),
				})
			}
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never":
		case "ratio":
			if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
				errs = append(errs, FieldError{
					Field:   "telemetry.tracing.sample_ratio",
					Message: fmt.Sprintf("sample ratio must be between 0 and 1, got %g", cfg.Tracing.SampleRatio),
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	return errs
}
