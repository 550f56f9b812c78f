// Package result carries domain operation outcomes across service
// boundaries without using Go errors for expected conditions.
package result

import "fmt"

// Code classifies an expected domain failure. Values mirror the HTTP
// statuses the API layer responds with.
type Code int

const (
	CodeNone               Code = 0
	CodeValidationFailed   Code = 400
	CodeNotFound           Code = 404
	CodeConflict           Code = 409
	CodePreconditionFailed Code = 417
)

// Result holds either a success value or a failure message with a Code.
type Result[T any] struct {
	value  T
	msg    string
	code   Code
	failed bool
}

// Success wraps a value in a successful Result.
func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Ok returns an empty successful Result, for operations with no payload.
func Ok[T any]() Result[T] {
	return Result[T]{}
}

// Failure builds a failed Result with a coded category and message.
func Failure[T any](code Code, format string, args ...any) Result[T] {
	return Result[T]{failed: true, code: code, msg: fmt.Sprintf(format, args...)}
}

// IsSuccess reports whether the Result carries a value.
func (r Result[T]) IsSuccess() bool { return !r.failed }

// IsFailure reports whether the Result carries a failure.
func (r Result[T]) IsFailure() bool { return r.failed }

// Value returns the success payload and whether it is valid.
func (r Result[T]) Value() (T, bool) { return r.value, !r.failed }

// Code returns the failure category, or CodeNone for a success.
func (r Result[T]) Code() Code {
	if !r.failed {
		return CodeNone
	}
	return r.code
}

// Message returns the failure message, empty for a success.
func (r Result[T]) Message() string { return r.msg }

// Unwrap returns the success payload and panics on a failure. Callers
// use it only after checking IsSuccess, or where a failure means a
// programming error that should abort the flow.
func (r Result[T]) Unwrap() T {
	if r.failed {
		panic(fmt.Sprintf("unwrap of failed result: [%d] %s", r.code, r.msg))
	}
	return r.value
}

// String renders the Result for logs.
func (r Result[T]) String() string {
	if r.failed {
		return fmt.Sprintf("failure[%d]: %s", r.code, r.msg)
	}
	return fmt.Sprintf("success: %v", r.value)
}

// Map applies fn to the payload of a successful Result and re-wraps the
// outcome; a failure passes through untouched.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.failed {
		return Result[U]{failed: true, code: r.code, msg: r.msg}
	}
	return Success(fn(r.value))
}

// Forward carries a failure into a Result of another payload type.
// It panics when called on a success.
func Forward[U, T any](r Result[T]) Result[U] {
	if !r.failed {
		panic("forward of successful result")
	}
	return Result[U]{failed: true, code: r.code, msg: r.msg}
}
