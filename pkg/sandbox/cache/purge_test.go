package cache

import (
	"context"
	"testing"
	"time"
)

func TestPurger_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "every fifteen minutes", schedule: "*/15 * * * *", wantRunning: true},
		{name: "hourly", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: "", wantRunning: false},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory(MemoryConfig{TTL: time.Minute})
			defer m.Close()

			p := NewPurger(m, tt.schedule)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := p.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if p.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", p.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && p.NextRun() == nil {
				t.Error("NextRun() = nil for a running purger")
			}
			p.Stop()
			if p.IsRunning() {
				t.Error("IsRunning() = true after Stop()")
			}
		})
	}
}

func TestPurger_RunOnce(t *testing.T) {
	s, clock := newTestSQLite(t, time.Minute)
	ctx := context.Background()

	_ = s.Set(ctx, "a", sampleEntry("a"))
	clock.Advance(time.Hour)

	if n := NewPurger(s, "").RunOnce(ctx); n != 1 {
		t.Errorf("RunOnce() = %d, want 1", n)
	}
}
