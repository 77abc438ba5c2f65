package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError carries the cause together with a user-facing hint and
// optional reportable details. The cause is what gets logged; the hint is what
// the API returns to callers.
type InternalError struct {
	cause   error
	hint    string
	details map[string]interface{}
}

func (e *InternalError) Error() string {
	return e.cause.Error()
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// Hint returns the user-facing hint, falling back to the cause message.
func (e *InternalError) Hint() string {
	if e.hint != "" {
		return e.hint
	}
	return e.cause.Error()
}

// Details returns the reportable details attached to the error, if any.
func (e *InternalError) Details() map[string]interface{} {
	return e.details
}

// ErrorBuilder assembles an InternalError fluently. The terminal Mark call
// classifies the error against one of the package marker errors.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]interface{}
}

// NewError starts building an error with the given message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts building an error with a formatted message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts building an error wrapping an existing one.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches a user-facing hint.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf attaches a formatted user-facing hint.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to return to callers.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.details = details
	return b
}

// WithMessagef wraps the current cause with additional formatted context.
func (b *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	b.err = errors.Wrapf(b.err, format, args...)
	return b
}

// Mark finalizes the error, marking it with the given reference error so
// errors.Is(err, ref) holds.
func (b *ErrorBuilder) Mark(ref error) error {
	internal := &InternalError{
		cause:   b.err,
		hint:    b.hint,
		details: b.details,
	}
	return errors.Mark(internal, ref)
}
