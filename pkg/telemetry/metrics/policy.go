package metrics

import (
	"time"

	"mercator-hq/bastion/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy document reloads.
//
// Metrics:
//   - bastion_sandbox_policy_reloads_total: Reload attempts by result
//   - bastion_sandbox_policy_last_reload_timestamp_seconds: Time of the last successful reload
type PolicyMetrics struct {
	reloadsTotal *prometheus.CounterVec
	lastReload   prometheus.Gauge
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_reloads_total",
				Help:      "Total number of policy reload attempts",
			},
			[]string{"result"},
		),

		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_last_reload_timestamp_seconds",
				Help:      "Unix time of the last successful policy reload",
			},
		),
	}

	registry.MustRegister(pm.reloadsTotal, pm.lastReload)

	return pm
}

// RecordReload records a reload attempt. A nil err counts as success.
func (pm *PolicyMetrics) RecordReload(err error, at time.Time) {
	if err != nil {
		pm.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	pm.reloadsTotal.WithLabelValues("success").Inc()
	pm.lastReload.Set(float64(at.Unix()))
}
