package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bastion.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
	if cfg.Sandbox.Policy.Mode != DefaultPolicyMode {
		t.Errorf("policy mode = %q, want %q", cfg.Sandbox.Policy.Mode, DefaultPolicyMode)
	}
	if !cfg.Sandbox.Options.SandboxStrings {
		t.Error("sandbox strings should default to true")
	}
	if !cfg.Cache.Enabled || !cfg.Cache.Purge.Enabled || !cfg.Telemetry.Metrics.Enabled {
		t.Error("boolean defaults should be true")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.Cache.TTL)
	}

	cfg.Telemetry.Metrics.DurationBuckets[0] = 42
	if DefaultDurationBuckets[0] == 42 {
		t.Error("Default() shares the bucket slice")
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name:    "empty file uses defaults",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Cache.Backend != "memory" {
					t.Errorf("backend = %q, want memory", cfg.Cache.Backend)
				}
				if !cfg.Sandbox.Options.ValidateFunctions {
					t.Error("validate_functions should stay true")
				}
			},
		},
		{
			name: "overrides keep unrelated defaults",
			content: `
sandbox:
  id: tenant-1
  options:
    allow_functions: true
    sandbox_strings: false
    time_limit: 2s
cache:
  backend: sqlite
  ttl: 24h
  sqlite:
    path: /tmp/cache.db
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Sandbox.ID != "tenant-1" {
					t.Errorf("id = %q", cfg.Sandbox.ID)
				}
				o := cfg.Sandbox.Options
				if !o.AllowFunctions || o.SandboxStrings || !o.ValidateClasses {
					t.Errorf("options = %+v", o)
				}
				if o.TimeLimit != 2*time.Second {
					t.Errorf("time limit = %v, want 2s", o.TimeLimit)
				}
				if cfg.Cache.TTL != 24*time.Hour || cfg.Cache.SQLite.Path != "/tmp/cache.db" {
					t.Errorf("cache = %+v", cfg.Cache)
				}
				if cfg.Cache.SQLite.Driver != DefaultSQLiteDriver {
					t.Errorf("driver = %q, want default", cfg.Cache.SQLite.Driver)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: "cache: [\n",
			wantErr: "failed to parse",
		},
		{
			name:    "invalid backend",
			content: "cache:\n  backend: disk\n",
			wantErr: "cache.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want error")
	}
}

func TestParse_ExpandsRedisPassword(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	cfg, err := Parse([]byte("cache:\n  redis:\n    password: ${TEST_REDIS_PASSWORD}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Redis.Password != "s3cret" {
		t.Errorf("password = %q, want s3cret", cfg.Cache.Redis.Password)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: memory\n")

	t.Setenv("BASTION_SANDBOX_ID", "from-env")
	t.Setenv("BASTION_CACHE_BACKEND", "redis")
	t.Setenv("BASTION_CACHE_TTL", "5m")
	t.Setenv("BASTION_CACHE_MAX_ENTRIES", "12")
	t.Setenv("BASTION_CACHE_ENABLED", "false")
	t.Setenv("BASTION_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("BASTION_SANDBOX_OPTIONS_SANDBOX_STRINGS", "not-a-bool")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Sandbox.ID != "from-env" {
		t.Errorf("id = %q", cfg.Sandbox.ID)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL != 5*time.Minute || cfg.Cache.MaxEntries != 12 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Sandbox.Options.SandboxStrings {
		t.Error("unparseable override should be ignored")
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BASTION_TELEMETRY_LOGGING_FORMAT", "xml")

	_, err := LoadConfigWithEnvOverrides(path)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Errors[0].Field != "telemetry.logging.format" {
		t.Errorf("field = %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("BASTION_CACHE_BACKEND", "sqlite")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Cache.Backend)
	}
}
