package config

import (
	"time"

	"mercator-hq/bastion/pkg/sandbox/options"
)

// Default values for configuration fields.
const (
	// Policy source defaults
	DefaultPolicyMode             = "file"
	DefaultPolicyFilePath         = "./policy.yaml"
	DefaultPolicyDebounceInterval = 100 * time.Millisecond
	DefaultGitBranch              = "main"
	DefaultGitPath                = "policy.yaml"
	DefaultGitLocalPath           = "data/policy-repo"
	DefaultGitDepth               = 1
	DefaultGitTimeout             = 30 * time.Second

	// Cache defaults
	DefaultCacheEnabled         = true
	DefaultCacheBackend         = "memory"
	DefaultCacheTTL             = time.Hour
	DefaultCacheMaxEntries      = 10000
	DefaultCacheCleanupInterval = time.Minute
	DefaultRedisAddress         = "127.0.0.1:6379"
	DefaultRedisKeyPrefix       = "bastion:cache:"
	DefaultRedisDialTimeout     = 5 * time.Second
	DefaultSQLitePath           = "data/validation-cache.db"
	DefaultSQLiteDriver         = "sqlite"
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultPurgeEnabled         = true
	DefaultPurgeSchedule        = "*/15 * * * *"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "bastion"
	DefaultMetricsSubsystem = "sandbox"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "bastion"
	DefaultTracingTimeout   = 10 * time.Second
)

// DefaultDurationBuckets are the validation duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Default returns a configuration with every default applied. Files are
// decoded over it so boolean fields that default to true stay true when
// absent.
func Default() *Config {
	cfg := &Config{
		Sandbox: SandboxConfig{Options: options.Defaults()},
		Cache: CacheConfig{
			Enabled: DefaultCacheEnabled,
			Purge:   PurgeConfig{Enabled: DefaultPurgeEnabled},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(cfg *Config) {
	// Policy source defaults
	p := &cfg.Sandbox.Policy
	if p.Mode == "" {
		p.Mode = DefaultPolicyMode
	}
	if p.FilePath == "" {
		p.FilePath = DefaultPolicyFilePath
	}
	if p.DebounceInterval == 0 {
		p.DebounceInterval = DefaultPolicyDebounceInterval
	}
	if p.Git.Branch == "" {
		p.Git.Branch = DefaultGitBranch
	}
	if p.Git.Path == "" {
		p.Git.Path = DefaultGitPath
	}
	if p.Git.LocalPath == "" {
		p.Git.LocalPath = DefaultGitLocalPath
	}
	if p.Git.Depth == 0 {
		p.Git.Depth = DefaultGitDepth
	}
	if p.Git.Timeout == 0 {
		p.Git.Timeout = DefaultGitTimeout
	}

	// Cache defaults
	c := &cfg.Cache
	if c.Backend == "" {
		c.Backend = DefaultCacheBackend
	}
	if c.TTL == 0 {
		c.TTL = DefaultCacheTTL
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = DefaultCacheMaxEntries
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = DefaultCacheCleanupInterval
	}
	if c.Redis.Address == "" {
		c.Redis.Address = DefaultRedisAddress
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = DefaultSQLitePath
	}
	if c.SQLite.Driver == "" {
		c.SQLite.Driver = DefaultSQLiteDriver
	}
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if c.Purge.Schedule == "" {
		c.Purge.Schedule = DefaultPurgeSchedule
	}

	// Telemetry defaults
	t := &cfg.Telemetry
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == "ratio" {
		t.Tracing.SampleRatio = DefaultTracingRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
}
