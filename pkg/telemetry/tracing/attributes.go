package tracing

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sbErrors "mercator-hq/bastion/pkg/sandbox/errors"
)

// Span names.
const (
	SpanPrepare = "sandbox.prepare"
)

// Attribute keys use the "bastion.*" namespace.
const (
	AttrSandboxID = "bastion.sandbox.id"
	AttrIdentity  = "bastion.policy.identity"
	AttrRevision  = "bastion.policy.revision"
	AttrSource    = "bastion.source"
	AttrOutcome   = "bastion.outcome"
	AttrCacheHit  = "bastion.cache.hit"

	AttrViolationCode     = "bastion.violation.code"
	AttrViolationRange    = "bastion.violation.range"
	AttrViolationCategory = "bastion.violation.category"
	AttrViolationName     = "bastion.violation.name"
)

// SetOutcome records how a prepare call ended.
func SetOutcome(span trace.Span, outcome, identity string) {
	span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.String(AttrIdentity, identity),
		attribute.Bool(AttrCacheHit, outcome == "cached"),
	)
}

// SetError marks span as failed. Policy violations also get their code,
// category and offending name.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var serr *sbErrors.Error
	if errors.As(err, &serr) {
		span.SetAttributes(
			attribute.Int(AttrViolationCode, int(serr.Code)),
			attribute.String(AttrViolationRange, serr.Code.Range().String()),
			attribute.String(AttrViolationCategory, serr.Category),
			attribute.String(AttrViolationName, serr.Name),
		)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
