package metrics

import (
	"time"

	"mercator-hq/bastion/pkg/config"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ValidationMetrics tracks sandbox preparation and policy violations.
//
// Metrics:
//   - bastion_sandbox_validations_total: Prepared programs by outcome
//   - bastion_sandbox_validation_duration_seconds: Preparation duration by outcome
//   - bastion_sandbox_violations_total: Violations by range and category
type ValidationMetrics struct {
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	violationsTotal    *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics with the provided registry.
func NewValidationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validations_total",
				Help:      "Total number of prepared programs",
			},
			[]string{"outcome"},
		),

		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_duration_seconds",
				Help:      "Time spent preparing a program",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "violations_total",
				Help:      "Total number of policy violations reported",
			},
			[]string{"range", "category"},
		),
	}

	registry.MustRegister(
		vm.validationsTotal,
		vm.validationDuration,
		vm.violationsTotal,
	)

	return vm
}

// RecordValidation records one prepared program.
//
// Parameters:
//   - outcome: "valid", "cached", "rejected" or "skipped"
//   - duration: Time spent in Prepare
func (vm *ValidationMetrics) RecordValidation(outcome string, duration time.Duration) {
	vm.validationsTotal.WithLabelValues(outcome).Inc()
	vm.validationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordViolation records one reported violation. Violations recovered by an
// error handler are counted too.
func (vm *ValidationMetrics) RecordViolation(code sbErrors.Code, category string) {
	if category == "" {
		category = "none"
	}
	vm.violationsTotal.WithLabelValues(code.Range().String(), category).Inc()
}
