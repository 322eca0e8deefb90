package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError is the rich error type carried across layers. It keeps a
// human readable hint and a set of reportable details alongside the wrapped
// cause so transport layers can render it without string parsing.
type InternalError struct {
	cause             error
	hint              string
	reportableDetails map[string]interface{}
}

func (e *InternalError) Error() string {
	if e.cause == nil {
		return e.hint
	}
	return e.cause.Error()
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *InternalError) Unwrap() error {
	return e.cause
}

// Hint returns the human readable hint attached to the error, if any.
func (e *InternalError) Hint() string {
	return e.hint
}

// ReportableDetails returns the structured details attached to the error.
func (e *InternalError) ReportableDetails() map[string]interface{} {
	return e.reportableDetails
}

// ErrorBuilder builds an InternalError fluently. The terminal call is
// Mark, which classifies the error with one of the marker errors and
// returns the built error.
type ErrorBuilder struct {
	err  *InternalError
	base error
}

// NewError starts building an error from a fresh message.
func NewError(message string) *ErrorBuilder {
	return &ErrorBuilder{
		err:  &InternalError{},
		base: errors.New(message),
	}
}

// NewErrorf starts building an error from a formatted message.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return NewError(fmt.Sprintf(format, args...))
}

// WithError starts building an error wrapping an existing cause.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err:  &InternalError{},
		base: err,
	}
}

// WithHint attaches a human readable hint to the error.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err.hint = hint
	return b
}

// WithHintf attaches a formatted human readable hint to the error.
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.err.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to surface to callers.
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	b.err.reportableDetails = details
	return b
}

// Mark classifies the error with the given marker and returns the built error.
func (b *ErrorBuilder) Mark(mark error) error {
	b.err.cause = errors.Mark(b.base, mark)
	return b.err
}

// Hint extracts the hint from an error chain, if present.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Hint()
	}
	return ""
}
