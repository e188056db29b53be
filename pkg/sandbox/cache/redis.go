package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis cache.
type RedisConfig struct {
	// Prefix namespaces the keys written by the cache. Default: "bastion:cache:".
	Prefix string

	// TTL is the time-to-live of entries (0 = no expiry).
	TTL time.Duration

	// Recorder receives hit and miss events (optional).
	Recorder Recorder
}

// Redis is a cache tier shared by every process connected to the same server.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	recorder Recorder
}

// NewRedis creates a Redis cache on an existing client. The cache does not
// own the client; Close leaves it open.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "bastion:cache:"
	}
	return &Redis{
		client:   client,
		prefix:   cfg.Prefix,
		ttl:      cfg.TTL,
		recorder: recorderOrNop(cfg.Recorder),
	}, nil
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + Digest(key)
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.recorder.RecordMiss("redis")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, false, err
	}
	r.recorder.RecordHit("redis")
	return entry, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len implements Store by scanning the key prefix.
func (r *Redis) Len(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return count, nil
}

// Clear deletes every key under the prefix and returns how many were removed.
func (r *Redis) Clear(ctx context.Context) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to delete cache entry: %w", err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return removed, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return nil
}
