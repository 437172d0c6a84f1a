// Package errors contains error types with structured metadata, which are
// rendered as log attributes.
package errors

import (
	"errors"
	"maps"
)

// StructuredError enhances an error with structured metadata and a cause, which
// can be rendered as fields by slog.
type StructuredError struct {
	err      error
	metadata map[string]any
	cause    error
}

// Error implements the error interface.
func (e StructuredError) Error() string {
	return e.err.Error()
}

// Unwrap allows errors.Is and errors.As to work with both the error and its
// cause.
func (e StructuredError) Unwrap() []error {
	var errs []error
	if e.err != nil {
		errs = append(errs, e.err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the cause error of this error.
func (e StructuredError) Cause() error {
	return e.cause
}

// Metadata returns a copy of the metadata map.
func (e StructuredError) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

// NewWithCause creates a new StructuredError from a message string with a cause
// and optional metadata given as key-value pairs.
func NewWithCause(msg string, cause error, fields ...any) *StructuredError {
	return WithCause(errors.New(msg), cause, fields...)
}

// With adds metadata to an error. If the error is already a StructuredError,
// the metadata is merged, with newer values taking precedence.
func With(err error, fields ...any) *StructuredError {
	se := wrap(err, fields)
	if me, ok := err.(*StructuredError); ok {
		se.cause = me.cause
	}
	return se
}

// WithCause is like With, but also sets the cause of the error.
func WithCause(err error, cause error, fields ...any) *StructuredError {
	se := wrap(err, fields)
	se.cause = cause
	return se
}

func wrap(err error, fields []any) *StructuredError {
	if len(fields)%2 != 0 {
		panic("an even number of fields is required")
	}

	metadata := make(map[string]any, len(fields)/2)
	if me, ok := err.(*StructuredError); ok {
		maps.Copy(metadata, me.metadata)
		err = me.err
	}
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			panic("keys must be strings")
		}
		metadata[key] = fields[i+1]
	}

	return &StructuredError{err: err, metadata: metadata}
}
