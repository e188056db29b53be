package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/sandbox/cache"
)

var cacheFlags struct {
	identity string
	all      bool
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the validation cache",
	Long: `Manage the persistent validation cache.

Subcommands:
  stats  - Show the number of cached programs
  purge  - Remove expired entries, one policy identity, or everything

Examples:
  # Remove expired rows from a SQLite cache
  bastion cache purge --config bastion.yaml

  # Drop every program cached under one policy identity
  bastion cache purge --identity 3f2a...

  # Remove every key from a Redis cache
  bastion cache purge --all`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached programs",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	cachePurgeCmd.Flags().StringVar(&cacheFlags.identity, "identity", "", "remove entries cached under this policy identity (sqlite)")
	cachePurgeCmd.Flags().BoolVar(&cacheFlags.all, "all", false, "remove every entry (redis, tiered)")
}

type identityDeleter interface {
	DeleteIdentity(ctx context.Context, identity string) (int, error)
}

type clearer interface {
	Clear(ctx context.Context) (int, error)
}

// openCacheApp opens the configured cache for maintenance commands.
func openCacheApp(cmd *cobra.Command) (context.Context, *app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, nil, cli.NewConfigError("cache.enabled", "the validation cache is disabled")
	}
	if cfg.Cache.Backend == "memory" {
		return nil, nil, cli.NewConfigError("cache.backend", "the memory cache does not outlive the process")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

// sharedTier returns the tier that survives the process.
func sharedTier(store cache.Store) cache.Store {
	if t, ok := store.(*cache.Tiered); ok {
		return t.Remote()
	}
	return store
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx, a, err := openCacheApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.cache.Len(ctx)
	if err != nil {
		return cli.NewCommandError("cache stats", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nEntries: %d\n", a.cfg.Cache.Backend, n)
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	if cacheFlags.all && cacheFlags.identity != "" {
		return cli.NewCommandError("cache purge", errors.New("--all and --identity cannot be combined"))
	}

	ctx, a, err := openCacheApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	target := sharedTier(a.cache)
	var (
		removed int
		what    string
	)
	switch {
	case cacheFlags.identity != "":
		d, ok := target.(identityDeleter)
		if !ok {
			return cli.NewCommandError("cache purge", fmt.Errorf("the %s backend cannot delete by identity", a.cfg.Cache.Backend))
		}
		removed, err = d.DeleteIdentity(ctx, cacheFlags.identity)
		what = "entries for identity " + cacheFlags.identity

	case cacheFlags.all:
		c, ok := target.(clearer)
		if !ok {
			return cli.NewCommandError("cache purge", fmt.Errorf("the %s backend cannot be cleared", a.cfg.Cache.Backend))
		}
		removed, err = c.Clear(ctx)
		what = "entries"

	default:
		p, ok := target.(cache.Purgeable)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "The %s backend expires entries on its own\n", a.cfg.Cache.Backend)
			return nil
		}
		removed, err = p.Purge(ctx)
		what = "expired entries"
	}
	if err != nil {
		return cli.NewCommandError("cache purge", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", removed, what)
	return nil
}
