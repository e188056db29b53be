package metrics

import (
	"mercator-hq/bastion/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts validation cache traffic per tier. The tier label is
// the name a cache reports itself under: "memory" for the in-process LRU
// (the L1 of a tiered cache), "redis" for the shared tier and "sqlite" for
// the persistent tier. It implements cache.Recorder.
//
// A tiered cache reports both of its tiers, so an L1 miss followed by a
// Redis hit increments memory misses and redis hits for the same lookup.
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics registers the cache metrics on registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, []string{"cache"})
	}

	cm := &CacheMetrics{
		hitsTotal:   counter("cache_hits_total", "Validated programs served from a cache tier"),
		missesTotal: counter("cache_misses_total", "Lookups that found no usable entry in a cache tier"),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Validated programs held by the in-process tier",
		}, []string{"cache"}),
		evictionsTotal: counter("cache_evictions_total", "Entries dropped for capacity or expiry, or purged from SQLite"),
	}

	registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.entries, cm.evictionsTotal)
	return cm
}

// RecordHit counts a lookup that returned a validated program.
func (cm *CacheMetrics) RecordHit(tier string) {
	cm.hitsTotal.WithLabelValues(tier).Inc()
}

// RecordMiss counts a lookup that sent the program to the validator. An
// expired memory entry counts as a miss and an eviction.
func (cm *CacheMetrics) RecordMiss(tier string) {
	cm.missesTotal.WithLabelValues(tier).Inc()
}

// UpdateSize sets the entry gauge. Only the memory tier reports a size;
// remote tiers are sized with "bastion cache stats".
func (cm *CacheMetrics) UpdateSize(tier string, size int) {
	cm.entries.WithLabelValues(tier).Set(float64(size))
}

// RecordEviction counts an entry removed before it was read again. The
// SQLite tier reports one eviction per purged row.
func (cm *CacheMetrics) RecordEviction(tier string) {
	cm.evictionsTotal.WithLabelValues(tier).Inc()
}
