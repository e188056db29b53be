package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/bastion/pkg/cli"
	"mercator-hq/bastion/pkg/sandbox"
	"mercator-hq/bastion/pkg/sandbox/policy/source"
	"mercator-hq/bastion/pkg/telemetry/health"
	"mercator-hq/bastion/pkg/telemetry/logging"
)

var watchFlags struct {
	policy      string
	dir         []string
	format      string
	metricsAddr string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the policy on change and re-check programs",
	Long: `Keep a sandbox running, reloading its policy when the policy file changes
or the process receives SIGHUP, and re-check programs after every reload.

Examples:
  # Re-check jobs/ whenever policy.yaml changes
  bastion watch --policy policy.yaml --dir jobs/

  # Serve Prometheus metrics while watching
  bastion watch --config bastion.yaml --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.policy, "policy", "p", "", "policy file to watch (overrides the configured source)")
	watchCmd.Flags().StringSliceVarP(&watchFlags.dir, "dir", "d", nil, "programs to re-check after each reload")
	watchCmd.Flags().StringVarP(&watchFlags.format, "format", "f", "text", "output format: text, json, yaml, csv")
	watchCmd.Flags().StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "serve metrics and health endpoints on this address")
}

// watcher owns the active sandbox and swaps it when the policy reloads.
type watcher struct {
	app   *app
	files []string
	out   io.Writer

	mu       sync.Mutex
	sandbox  *sandbox.Sandbox
	revision string
}

// reload builds a store from the configured source and replaces the active
// sandbox. The old sandbox stays active when the new policy cannot be loaded.
func (w *watcher) reload(ctx context.Context) error {
	store, revision, err := w.app.loadPolicy(ctx)
	w.app.metrics.RecordPolicyReload(err)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sandbox != nil && revision == w.revision {
		w.app.logger.DebugContext(ctx, "policy unchanged", "revision", revision)
		return nil
	}

	// The runtime registry rejects duplicate IDs, so the old sandbox has to
	// release its ID before the new one registers.
	var old *sandbox.Sandbox
	if w.sandbox != nil {
		old = w.sandbox
		_ = old.Close()
	}
	sb, err := w.app.newSandbox(store)
	if err != nil {
		if old != nil {
			if rerr := w.app.registry.Register(old.Runtime()); rerr != nil {
				w.app.logger.ErrorContext(ctx, "failed to restore previous sandbox", "error", rerr)
			}
		}
		return err
	}
	w.sandbox = sb
	w.revision = revision

	return w.checkLocked(ctx)
}

// checkLocked re-checks the watched programs. w.mu must be held.
func (w *watcher) checkLocked(ctx context.Context) error {
	if len(w.files) == 0 {
		return nil
	}
	ctx = logging.WithRevision(logging.WithSandboxID(ctx, w.sandbox.ID()), w.revision)

	report := &checkReport{Revision: w.revision}
	for _, file := range w.files {
		report.Results = append(report.Results, checkFile(ctx, w.sandbox, file, false))
	}
	return cli.NewFormatter(cli.OutputFormat(watchFlags.format)).FormatTo(w.out, report)
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sandbox != nil {
		_ = w.sandbox.Close()
		w.sandbox = nil
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchFlags.policy != "" {
		cfg.Sandbox.Policy.Mode = "file"
		cfg.Sandbox.Policy.FilePath = watchFlags.policy
		cfg.Sandbox.Policy.Watch = true
	}

	var files []string
	if len(watchFlags.dir) > 0 {
		if files, err = programFiles(watchFlags.dir); err != nil {
			return cli.NewCommandError("watch", err)
		}
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := cli.SetupSignalHandler(parent)
	defer cancel()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer a.Close()

	w := &watcher{app: a, files: files, out: cmd.OutOrStdout()}
	if err := w.reload(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer w.close()

	if a.purger != nil {
		if err := a.purger.Start(ctx); err != nil {
			return cli.NewCommandError("watch", err)
		}
	}

	if watchFlags.metricsAddr != "" {
		srv := &http.Server{
			Addr:              watchFlags.metricsAddr,
			Handler:           w.mux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics and health endpoints", "addr", watchFlags.metricsAddr)
	}

	onChange := func() error { return w.reload(ctx) }

	policyCfg := cfg.Sandbox.Policy
	if policyCfg.Watch && policyCfg.Mode == "file" {
		fw, err := source.NewWatcher(policyCfg.FilePath, policyCfg.DebounceInterval, a.logger)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		go func() {
			if err := fw.Watch(ctx, onChange); err != nil {
				a.logger.Error("policy watcher exited", "error", err)
			}
		}()
		defer fw.Stop()
	}

	hup, stopHUP := cli.ReloadSignals()
	defer stopHUP()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil
		case <-hup:
			a.logger.Info("reload requested")
			if err := onChange(); err != nil {
				a.logger.Error("policy reload failed", slog.Any("error", err))
			}
		}
	}
}

// mux serves metrics and the health endpoints. Readiness requires an active
// sandbox and, when caching is enabled, a reachable cache.
func (w *watcher) mux() http.Handler {
	checker := health.New(2 * time.Second)
	checker.Register("policy", func(context.Context) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.sandbox == nil {
			return errors.New("no policy loaded")
		}
		return nil
	})
	if w.app.cache != nil {
		checker.Register("cache", func(ctx context.Context) error {
			_, err := w.app.cache.Len(ctx)
			return err
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", w.app.metrics.Handler())
	health.Mount(mux, checker, Version, GitCommit, BuildDate)
	return mux
}
