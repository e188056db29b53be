package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"mercator-hq/bastion/pkg/config"
	"mercator-hq/bastion/pkg/sandbox"
	"mercator-hq/bastion/pkg/sandbox/ast"
	"mercator-hq/bastion/pkg/sandbox/cache"
	"mercator-hq/bastion/pkg/sandbox/hooks"
	"mercator-hq/bastion/pkg/sandbox/policy"
	"mercator-hq/bastion/pkg/sandbox/policy/source"
	"mercator-hq/bastion/pkg/telemetry/logging"
	"mercator-hq/bastion/pkg/telemetry/metrics"
	"mercator-hq/bastion/pkg/telemetry/tracing"
)

// app holds the long-lived components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	registry *hooks.Registry
	cache    cache.Store
	purger   *cache.Purger
	redis    *redis.Client
}

// newApp builds the logger, metrics collector, tracer and validation cache
// described by cfg. Logs are written to logOut.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, logOut))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		registry: hooks.NewRegistry(),
	}

	if a.tracer, err = tracing.New(ctx, cfg.Telemetry.Tracing, Version); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	tier, err := openCache(ctx, cfg.Cache, a.metrics)
	if err != nil {
		_ = a.tracer.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	a.cache = tier.store
	a.redis = tier.client
	if tier.purgeable != nil && cfg.Cache.Purge.Enabled {
		a.purger = cache.NewPurger(tier.purgeable, cfg.Cache.Purge.Schedule)
	}

	return a, nil
}

// cacheTier is an opened validation cache.
type cacheTier struct {
	store cache.Store

	// purgeable is set when the tier keeps expired rows that need
	// scheduled purging.
	purgeable cache.Purgeable

	// client is the Redis connection owned by the tier, if any.
	client *redis.Client
}

// openCache opens the configured cache tier. A disabled cache yields an
// empty tier.
func openCache(ctx context.Context, cfg config.CacheConfig, rec cache.Recorder) (cacheTier, error) {
	if !cfg.Enabled {
		return cacheTier{}, nil
	}

	memory := func() *cache.Memory {
		return cache.NewMemory(cache.MemoryConfig{
			TTL:             cfg.TTL,
			MaxEntries:      cfg.MaxEntries,
			CleanupInterval: cfg.CleanupInterval,
			Recorder:        rec,
		})
	}

	switch cfg.Backend {
	case "memory":
		return cacheTier{store: memory()}, nil

	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return cacheTier{}, err
			}
		}
		s, err := cache.NewSQLite(cache.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			TTL:         cfg.TTL,
			BusyTimeout: cfg.SQLite.BusyTimeout,
			Recorder:    rec,
		})
		if err != nil {
			return cacheTier{}, err
		}
		return cacheTier{store: s, purgeable: s}, nil

	case "redis", "tiered":
		client, err := cache.DialRedis(ctx, &redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return cacheTier{}, err
		}
		r, err := cache.NewRedis(client, cache.RedisConfig{
			Prefix:   cfg.Redis.KeyPrefix,
			TTL:      cfg.TTL,
			Recorder: rec,
		})
		if err != nil {
			_ = client.Close()
			return cacheTier{}, err
		}
		if cfg.Backend == "tiered" {
			return cacheTier{store: cache.NewTiered(memory(), r), client: client}, nil
		}
		return cacheTier{store: r, client: client}, nil

	default:
		return cacheTier{}, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// loadPolicy builds a policy store from the configured source.
func (a *app) loadPolicy(ctx context.Context) (*policy.Store, string, error) {
	src, err := source.New(a.cfg.Sandbox.Policy)
	if err != nil {
		return nil, "", err
	}
	store, revision, err := source.Build(ctx, src)
	if err != nil {
		return nil, "", err
	}
	a.logger.InfoContext(logging.WithRevision(ctx, revision), "policy loaded", "source", src.Describe())
	return store, revision, nil
}

// newSandbox creates a sandbox over store with the configured options.
func (a *app) newSandbox(store *policy.Store) (*sandbox.Sandbox, error) {
	opts := a.cfg.Sandbox.Options
	return sandbox.New(sandbox.Config{
		ID:       a.cfg.Sandbox.ID,
		Store:    store,
		Options:  &opts,
		Cache:    a.cache,
		Registry: a.registry,
		File:     a.cfg.Sandbox.File,
		Logger:   a.logger,
		Recorder: a.metrics,
		Tracer:   a.tracer.Tracer(),
	})
}

// Close stops the purger, flushes pending spans and releases the cache and
// its connection.
func (a *app) Close() error {
	if a.purger != nil {
		a.purger.Stop()
	}
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// readProgram reads a serialized syntax tree. Files ending in .json are
// decoded as JSON, everything else as YAML.
func readProgram(path string) (*ast.Node, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	format := ast.FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = ast.FormatJSON
	}
	parser := &ast.DocumentParser{Format: format, File: path}
	tree, err := parser.Parse(string(data))
	if err != nil {
		return nil, string(data), err
	}
	return tree, string(data), nil
}

// programFiles expands directories in paths to the YAML and JSON files they
// contain.
func programFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml", ".json":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no program files found")
	}
	return files, nil
}
