// Package tracing provides OpenTelemetry spans for sandbox preparation.
//
// # Overview
//
// Each Sandbox.Prepare call runs inside a "sandbox.prepare" span carrying
// the sandbox ID, the policy identity and the outcome. Rejections record the
// violation code, range, category and offending name, so a trace shows
// exactly which symbol a program was refused for.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio        # always, never, ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    insecure: true
//
// Spans are exported over OTLP gRPC. Samplers are parent-based, so a
// prepare call inside a traced request follows the caller's decision.
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	sb, err := sandbox.New(sandbox.Config{Tracer: tracer.Tracer()})
package tracing
