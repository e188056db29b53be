package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// SandboxIDKey is the context key for the sandbox identifier.
	SandboxIDKey contextKey = "sandbox_id"

	// RevisionKey is the context key for the active policy revision.
	RevisionKey contextKey = "policy_revision"

	// SourceKey is the context key for the name of the program being prepared.
	SourceKey contextKey = "source"
)

// WithSandboxID adds a sandbox identifier to the context.
func WithSandboxID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SandboxIDKey, id)
}

// GetSandboxID retrieves the sandbox identifier from the context.
func GetSandboxID(ctx context.Context) string {
	if id, ok := ctx.Value(SandboxIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRevision adds the policy revision to the context.
func WithRevision(ctx context.Context, revision string) context.Context {
	return context.WithValue(ctx, RevisionKey, revision)
}

// GetRevision retrieves the policy revision from the context.
func GetRevision(ctx context.Context) string {
	if rev, ok := ctx.Value(RevisionKey).(string); ok {
		return rev
	}
	return ""
}

// WithSource adds the program name to the context.
func WithSource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, SourceKey, name)
}

// GetSource retrieves the program name from the context.
func GetSource(ctx context.Context) string {
	if name, ok := ctx.Value(SourceKey).(string); ok {
		return name
	}
	return ""
}

// extractContextFields returns the non-empty context fields as slog attributes.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range []contextKey{SandboxIDKey, RevisionKey, SourceKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// contextHandler adds context fields to every record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := extractContextFields(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
