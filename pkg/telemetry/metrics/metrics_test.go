package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/bastion/pkg/config"
	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

func newTestCollector(t *testing.T, enabled bool) *Collector {
	t.Helper()
	return NewCollector(&config.MetricsConfig{Enabled: enabled}, nil)
}

func TestNewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != "bastion" || cfg.Subsystem != "sandbox" {
		t.Errorf("namespace/subsystem = %q/%q", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.DurationBuckets) == 0 {
		t.Error("duration buckets not defaulted")
	}
}

func TestCollector_RecordValidation(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordValidation("valid", 2*time.Millisecond)
	c.RecordValidation("valid", 3*time.Millisecond)
	c.RecordValidation("rejected", time.Millisecond)

	tests := []struct {
		outcome string
		want    float64
	}{
		{outcome: "valid", want: 2},
		{outcome: "rejected", want: 1},
		{outcome: "cached", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got := testutil.ToFloat64(c.validationMetrics.validationsTotal.WithLabelValues(tt.outcome))
			if got != tt.want {
				t.Errorf("validations_total{outcome=%q} = %v, want %v", tt.outcome, got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(c.validationMetrics.validationDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_RecordViolation(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordViolation(sbErrors.CodeFor(sbErrors.RangeWhitelist, 0), "function")
	c.RecordViolation(sbErrors.CodeFor(sbErrors.RangeWhitelist, 0), "function")
	c.RecordViolation(sbErrors.CodeParse, "")

	if got := testutil.ToFloat64(c.validationMetrics.violationsTotal.WithLabelValues("whitelist", "function")); got != 2 {
		t.Errorf("whitelist/function = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.validationMetrics.violationsTotal.WithLabelValues("misc", "none")); got != 1 {
		t.Errorf("misc/none = %v, want 1", got)
	}
}

func TestCollector_Cache(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordHit("memory")
	c.RecordMiss("memory")
	c.RecordMiss("memory")
	c.RecordEviction("sqlite")
	c.UpdateSize("memory", 42)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "hits", got: testutil.ToFloat64(c.cacheMetrics.hitsTotal.WithLabelValues("memory")), want: 1},
		{name: "misses", got: testutil.ToFloat64(c.cacheMetrics.missesTotal.WithLabelValues("memory")), want: 2},
		{name: "evictions", got: testutil.ToFloat64(c.cacheMetrics.evictionsTotal.WithLabelValues("sqlite")), want: 1},
		{name: "entries", got: testutil.ToFloat64(c.cacheMetrics.entries.WithLabelValues("memory")), want: 42},
	}
	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestCollector_RecordPolicyReload(t *testing.T) {
	c := newTestCollector(t, true)

	c.RecordPolicyReload(nil)
	c.RecordPolicyReload(errors.New("boom"))

	if got := testutil.ToFloat64(c.policyMetrics.reloadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.policyMetrics.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.policyMetrics.lastReload); got == 0 {
		t.Error("last reload timestamp not set")
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := newTestCollector(t, false)

	c.RecordValidation("valid", time.Millisecond)
	c.RecordViolation(sbErrors.CodeParse, "")
	c.RecordHit("memory")
	c.RecordPolicyReload(nil)

	count, err := testutil.GatherAndCount(c.Registry())
	if err != nil {
		t.Fatal(err)
	}
	// Only the unlabelled reload gauge exports a series while idle.
	if count != 1 {
		t.Errorf("gathered %d series, want 1", count)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t, true)
	c.RecordValidation("cached", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bastion_sandbox_validations_total{outcome="cached"} 1`) {
		t.Errorf("body missing validation counter:\n%s", rec.Body.String())
	}
}
