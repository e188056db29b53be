package errors

import (
	"log/slog"
	"sync"
)

// Handler receives every reported error. Returning nil recovers from the
// error; returning a non-nil error propagates it (possibly replaced).
type Handler func(*Error) error

// Reporter routes errors to the host handler and retains the most recent one.
// It is safe for concurrent use.
type Reporter struct {
	mu      sync.RWMutex
	handler Handler
	last    *Error
	logger  *slog.Logger
}

// NewReporter creates a reporter that logs violations to logger.
// A nil logger uses slog.Default().
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger.With("component", "sandbox.errors")}
}

// SetHandler installs the host handler. A nil handler restores propagation.
func (r *Reporter) SetHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// LastError returns the most recently reported error, or nil.
func (r *Reporter) LastError() *Error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Report records err and hands it to the handler.
// When the handler replaces the error with an *Error that has no cause,
// the original error becomes its cause.
func (r *Reporter) Report(err *Error) error {
	r.mu.Lock()
	r.last = err
	h := r.handler
	r.mu.Unlock()

	attrs := []any{"code", int(err.Code), "range", err.Code.Range().String(), "name", err.Name}
	if err.Category != "" {
		attrs = append(attrs, "category", err.Category)
	}
	if err.Location != nil && err.Location.IsValid() {
		attrs = append(attrs, "location", err.Location.String())
	}
	r.logger.Warn(err.Message, attrs...)

	if h == nil {
		return err
	}
	out := h(err)
	if out == nil {
		r.logger.Debug("handler recovered from violation", "code", int(err.Code))
		return nil
	}
	if replaced, ok := out.(*Error); ok && replaced != err && replaced.Cause == nil {
		replaced.Cause = err
	}
	return out
}
