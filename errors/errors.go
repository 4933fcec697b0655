// Package errors provides error handling for vellum.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	"net/http"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors carried by the canvas service. Handlers map these onto
// HTTP status codes at the endpoint boundary via HTTPStatus; wrap them with
// errors.Wrap / errors.Wrapf to add context while preserving the category.
var (
	// ErrInvalidArgument indicates a malformed body, bad enum value, or
	// missing required field
	ErrInvalidArgument = New("invalid argument")

	// ErrNotFound indicates the requested element or snapshot does not exist
	ErrNotFound = New("not found")

	// ErrUnavailable indicates a correlated call was made with no connected
	// editor peer
	ErrUnavailable = New("unavailable")

	// ErrTimeout indicates a correlated call's deadline elapsed before any
	// peer responded
	ErrTimeout = New("operation timed out")

	// ErrPeerError indicates a connected peer reported a failure while
	// servicing a correlated call
	ErrPeerError = New("peer error")
)

// IsInvalidArgument checks if an error is or wraps ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return err != nil && Is(err, ErrInvalidArgument)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
// Also accepts legacy string-based "not found" errors from older callers.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNotFound) {
		return true
	}
	errMsg := err.Error()
	return len(errMsg) >= 9 && errMsg[len(errMsg)-9:] == "not found"
}

// IsUnavailable checks if an error is or wraps ErrUnavailable
func IsUnavailable(err error) bool {
	return err != nil && Is(err, ErrUnavailable)
}

// IsTimeout checks if an error is or wraps ErrTimeout
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// IsPeerError checks if an error is or wraps ErrPeerError
func IsPeerError(err error) bool {
	return err != nil && Is(err, ErrPeerError)
}

// NewInvalidArgumentf creates an invalid-argument error with a formatted message
func NewInvalidArgumentf(format string, args ...interface{}) error {
	return Wrap(ErrInvalidArgument, Newf(format, args...).Error())
}

// NewNotFoundf creates a not-found error with a formatted message
func NewNotFoundf(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// HTTPStatus maps an error onto the HTTP status code the REST surface
// reports for it. Unknown errors are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidArgument(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	case IsTimeout(err), IsPeerError(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
