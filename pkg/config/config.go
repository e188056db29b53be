package config

import (
	"time"

	"mercator-hq/bastion/pkg/sandbox/options"
)

// Config is the root configuration structure for Bastion.
// It contains the sandbox, validation cache and telemetry sections.
type Config struct {
	// Sandbox contains the sandbox identity, the validation options and the
	// location of the policy document.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Cache contains configuration for the validation cache including
	// backend selection, expiry and purge scheduling.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SandboxConfig contains configuration for one sandbox.
type SandboxConfig struct {
	// ID identifies the sandbox in rewritten hook calls and partitions the
	// validation cache. A random ID is generated when empty.
	// Default: ""
	ID string `yaml:"id"`

	// File is the path reported for the file and directory magic constants.
	// Default: ""
	File string `yaml:"file"`

	// Options are the validation options. Keys absent from the file keep
	// the defaults of options.Defaults.
	Options options.Options `yaml:"options"`

	// Policy contains the policy document source.
	Policy PolicySourceConfig `yaml:"policy"`
}

// PolicySourceConfig configures where the policy document is loaded from.
type PolicySourceConfig struct {
	// Mode specifies how the policy is loaded.
	// Options: "file" (local file), "git" (Git repository)
	// Default: "file"
	Mode string `yaml:"mode"`

	// FilePath is the path to the policy document when Mode is "file".
	// Default: "./policy.yaml"
	FilePath string `yaml:"file_path"`

	// Git contains Git repository configuration. Used when Mode is "git".
	Git GitConfig `yaml:"git"`

	// Watch enables automatic reloading when the policy file changes.
	// Only supported when Mode is "file".
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period after a change before the policy
	// is reloaded.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// GitConfig configures Git-based policy loading.
type GitConfig struct {
	// Repository is the remote URL to clone from. When empty, LocalPath must
	// already hold a repository.
	// Example: "https://github.com/company/sandbox-policy.git"
	Repository string `yaml:"repository"`

	// Branch is the branch whose head is read.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the path of the policy document within the repository.
	// Default: "policy.yaml"
	Path string `yaml:"path"`

	// LocalPath is the directory of the local clone.
	// Default: "data/policy-repo"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// Timeout bounds clone operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig contains configuration for the validation cache.
type CacheConfig struct {
	// Enabled controls whether validated programs are cached.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the cache tier.
	// Options: "memory", "redis", "sqlite", "tiered" (memory in front of redis)
	// Default: "memory"
	Backend string `yaml:"backend"`

	// TTL is the time-to-live of cached entries (0 = no expiry).
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the in-memory tier (0 = unlimited).
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// CleanupInterval is how often the in-memory tier sweeps expired entries.
	// Default: 1m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Redis contains Redis connection settings.
	Redis RedisConfig `yaml:"redis"`

	// SQLite contains SQLite database settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Purge schedules removal of expired SQLite rows.
	Purge PurgeConfig `yaml:"purge"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Address is the Redis server address.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the Redis password (supports environment variable expansion).
	Password string `yaml:"password"`

	// DB is the Redis database number.
	// Default: 0
	DB int `yaml:"db"`

	// KeyPrefix namespaces cache keys.
	// Default: "bastion:cache:"
	KeyPrefix string `yaml:"key_prefix"`

	// DialTimeout bounds the initial connection.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SQLiteConfig contains SQLite database settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/validation-cache.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait for database locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PurgeConfig schedules purging of expired cache rows.
type PurgeConfig struct {
	// Enabled controls whether the purge job runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for the purge job.
	// Default: "*/15 * * * *" (every 15 minutes)
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "bastion"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "sandbox"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for validation duration (seconds).
	// Default: [0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name attached to every span.
	// Default: "bastion"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
