// Package health serves liveness, readiness and version endpoints for
// long-running Bastion processes.
//
// Readiness is the conjunction of named checks. The watch command registers
// one for the active policy and one for the validation cache:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("cache", func(ctx context.Context) error {
//	    _, err := store.Len(ctx)
//	    return err
//	})
//	health.Mount(mux, checker, Version, GitCommit, BuildDate)
//
// Checks run concurrently, each under the checker timeout. A check that
// panics or times out is reported as unhealthy.
package health
