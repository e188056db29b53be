// Package metrics provides Prometheus metrics collection for Bastion.
//
// # Overview
//
// The metrics package records how sandboxed programs are prepared, which
// policy rules they violate, how the validation cache performs and whether
// policy reloads succeed.
//
// # Metrics Categories
//
//   - Validation Metrics: Prepared programs by outcome and preparation time
//   - Violation Metrics: Violations by code range and symbol category
//   - Cache Metrics: Hits, misses, evictions and entry counts per tier
//   - Policy Metrics: Reload attempts and the time of the last reload
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	sb, err := sandbox.New(sandbox.Config{Recorder: collector})
//	mem := cache.NewMemory(cache.MemoryConfig{Recorder: collector})
//
//	http.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Every label takes values from a closed set (outcomes, code ranges,
// categories and cache tier names), so no cardinality limiting is applied.
package metrics
