package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Purgeable is a store that can remove its expired entries.
type Purgeable interface {
	Purge(ctx context.Context) (int, error)
}

// Purger removes expired cache rows on a cron schedule.
type Purger struct {
	target   Purgeable
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewPurger creates a purger for target.
//
// Common cron expressions:
//   - "*/15 * * * *" - Every 15 minutes
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
func NewPurger(target Purgeable, schedule string) *Purger {
	return &Purger{
		target:   target,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "sandbox.cache.purger"),
	}
}

// Start schedules purging until ctx is cancelled or Stop is called.
// An empty schedule does nothing.
func (p *Purger) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Info("purge schedule not configured, skipping purger")
		return nil
	}
	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}
	if _, err := p.cron.AddFunc(p.schedule, func() { p.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule purge: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("cache purger started", "schedule", p.schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// RunOnce purges expired entries immediately and returns the number removed.
func (p *Purger) RunOnce(ctx context.Context) int {
	deleted, err := p.target.Purge(ctx)
	if err != nil {
		p.logger.Error("cache purge failed", "error", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Info("cache purge completed", "deleted_count", deleted)
	} else {
		p.logger.Debug("cache purge completed, no entries deleted")
	}
	return deleted
}

// Stop stops the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("cache purger stopped")
	}
}

// IsRunning returns true if the purger is scheduled.
func (p *Purger) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextRun returns the next scheduled purge time, or nil.
func (p *Purger) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
