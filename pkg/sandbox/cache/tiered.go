package cache

import (
	"context"
	"errors"
	"log/slog"
)

// Tiered fronts a remote store with an in-process cache.
// Remote hits are promoted into the local tier.
type Tiered struct {
	local  Store
	remote Store
	logger *slog.Logger
}

// NewTiered creates a two-level cache.
func NewTiered(local, remote Store) *Tiered {
	return &Tiered{
		local:  local,
		remote: remote,
		logger: slog.Default().With("component", "sandbox.cache.tiered"),
	}
}

// Get implements Store. A remote failure is logged and reported as a miss;
// the local result always wins.
func (t *Tiered) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if entry, ok, err := t.local.Get(ctx, key); err == nil && ok {
		return entry, true, nil
	}

	entry, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		t.logger.Warn("remote cache read failed", "error", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	if err := t.local.Set(ctx, key, entry); err != nil {
		t.logger.Warn("failed to promote cache entry", "error", err)
	}
	return entry, true, nil
}

// Set implements Store by writing both tiers.
func (t *Tiered) Set(ctx context.Context, key string, entry *Entry) error {
	return errors.Join(t.local.Set(ctx, key, entry), t.remote.Set(ctx, key, entry))
}

// Delete implements Store by deleting from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.local.Delete(ctx, key), t.remote.Delete(ctx, key))
}

// Len implements Store with the remote count.
func (t *Tiered) Len(ctx context.Context) (int, error) {
	return t.remote.Len(ctx)
}

// Close implements Store by closing both tiers.
func (t *Tiered) Close() error {
	return errors.Join(t.local.Close(), t.remote.Close())
}

// Remote returns the shared tier.
func (t *Tiered) Remote() Store { return t.remote }
