package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes a YAML document over the defaults and fills in any
// remaining zero values. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	cfg.Cache.Redis.Password = os.ExpandEnv(cfg.Cache.Redis.Password)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BASTION_SECTION_FIELD (e.g., BASTION_CACHE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path starts from Default instead of a file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format BASTION_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Sandbox overrides
	envString("BASTION_SANDBOX_ID", &cfg.Sandbox.ID)
	envString("BASTION_SANDBOX_FILE", &cfg.Sandbox.File)
	envString("BASTION_SANDBOX_POLICY_MODE", &cfg.Sandbox.Policy.Mode)
	envString("BASTION_SANDBOX_POLICY_FILE_PATH", &cfg.Sandbox.Policy.FilePath)
	envBool("BASTION_SANDBOX_POLICY_WATCH", &cfg.Sandbox.Policy.Watch)
	envString("BASTION_SANDBOX_POLICY_GIT_REPOSITORY", &cfg.Sandbox.Policy.Git.Repository)
	envString("BASTION_SANDBOX_POLICY_GIT_BRANCH", &cfg.Sandbox.Policy.Git.Branch)
	envString("BASTION_SANDBOX_POLICY_GIT_PATH", &cfg.Sandbox.Policy.Git.Path)
	envString("BASTION_SANDBOX_POLICY_GIT_LOCAL_PATH", &cfg.Sandbox.Policy.Git.LocalPath)
	envBool("BASTION_SANDBOX_OPTIONS_SKIP_VALIDATION", &cfg.Sandbox.Options.SkipValidation)
	envBool("BASTION_SANDBOX_OPTIONS_SANDBOX_STRINGS", &cfg.Sandbox.Options.SandboxStrings)
	envDuration("BASTION_SANDBOX_OPTIONS_TIME_LIMIT", &cfg.Sandbox.Options.TimeLimit)

	// Cache overrides
	envBool("BASTION_CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("BASTION_CACHE_BACKEND", &cfg.Cache.Backend)
	envDuration("BASTION_CACHE_TTL", &cfg.Cache.TTL)
	envInt("BASTION_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	envString("BASTION_CACHE_REDIS_ADDRESS", &cfg.Cache.Redis.Address)
	envString("BASTION_CACHE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	envInt("BASTION_CACHE_REDIS_DB", &cfg.Cache.Redis.DB)
	envString("BASTION_CACHE_SQLITE_PATH", &cfg.Cache.SQLite.Path)
	envString("BASTION_CACHE_SQLITE_DRIVER", &cfg.Cache.SQLite.Driver)
	envBool("BASTION_CACHE_PURGE_ENABLED", &cfg.Cache.Purge.Enabled)
	envString("BASTION_CACHE_PURGE_SCHEDULE", &cfg.Cache.Purge.Schedule)

	// Telemetry overrides
	envString("BASTION_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("BASTION_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("BASTION_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("BASTION_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("BASTION_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
