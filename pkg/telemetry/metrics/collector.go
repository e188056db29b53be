package metrics

import (
	"time"

	"mercator-hq/bastion/pkg/config"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in Bastion.
// It registers every metric group on one registry and satisfies both the
// sandbox and the validation cache recorder interfaces, so a single value
// can be handed to sandbox.Config and to each cache tier.
//
// When metrics are disabled every Record method is a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	validationMetrics *ValidationMetrics
	cacheMetrics      *CacheMetrics
	policyMetrics     *PolicyMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "bastion",
//		Subsystem: "sandbox",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:            cfg,
		registry:          registry,
		validationMetrics: NewValidationMetrics(cfg, registry),
		cacheMetrics:      NewCacheMetrics(cfg, registry),
		policyMetrics:     NewPolicyMetrics(cfg, registry),
	}
}

// RecordValidation records a prepared program.
func (c *Collector) RecordValidation(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.validationMetrics.RecordValidation(outcome, duration)
}

// RecordViolation records a reported violation.
func (c *Collector) RecordViolation(code sbErrors.Code, category string) {
	if !c.config.Enabled {
		return
	}
	c.validationMetrics.RecordViolation(code, category)
}

// RecordHit records a cache hit.
func (c *Collector) RecordHit(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit(cacheName)
}

// RecordMiss records a cache miss.
func (c *Collector) RecordMiss(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss(cacheName)
}

// RecordEviction records a cache eviction.
func (c *Collector) RecordEviction(cacheName string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordEviction(cacheName)
}

// UpdateSize updates the entry count of a cache tier.
func (c *Collector) UpdateSize(cacheName string, size int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordPolicyReload records a policy reload attempt.
func (c *Collector) RecordPolicyReload(err error) {
	if !c.config.Enabled {
		return
	}
	c.policyMetrics.RecordReload(err, time.Now())
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
