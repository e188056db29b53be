package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
)

// Error is a policy or feature violation raised while preparing sandboxed code.
type Error struct {
	Message  string        // Error message
	Code     Code          // Numeric diagnostic code
	Category string        // Policy category, empty for feature errors
	Name     string        // Offending (normalized) symbol name
	Location *ast.Location // Location of the node that raised the error (optional)
	Payload  any           // Extra data for handlers (optional)
	Cause    error         // Wrapped error (optional)
}

// New creates an error without location.
func New(code Code, category, name, message string) *Error {
	return &Error{Code: code, Category: category, Name: name, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, category, name, format string, args ...any) *Error {
	return New(code, category, name, fmt.Sprintf(format, args...))
}

// Wrap creates an error that chains cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// At returns a copy of e that points at loc.
func (e *Error) At(loc ast.Location) *Error {
	c := *e
	c.Location = &loc
	return &c
}

// WithPayload returns a copy of e carrying payload.
func (e *Error) WithPayload(payload any) *Error {
	c := *e
	c.Payload = payload
	return &c
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%d] %s", int(e.Code), e.Message))
	if e.Location != nil && e.Location.IsValid() {
		sb.WriteString(" at ")
		sb.WriteString(e.Location.String())
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Root returns the innermost *Error in the cause chain.
func (e *Error) Root() *Error {
	root := e
	for {
		var next *Error
		if root.Cause == nil || !stdErrors.As(root.Cause, &next) {
			return root
		}
		root = next
	}
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) Code {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// HasCode reports whether any *Error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{Code: code})
}
