// Package fault defines the error taxonomy shared by the registry engine.
// Every error crossing a service boundary carries one of the codes below so
// callers and the API adapter can react without string matching.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a registry failure.
type Code int

const (
	// Internal covers invariant violations and unexpected store state.
	Internal Code = iota
	// InvalidArgument marks malformed or out-of-range input.
	InvalidArgument
	// NotFound marks a missing or soft-deleted record.
	NotFound
	// PermissionDenied marks a caller whose organization or fingerprint
	// does not match the current owner.
	PermissionDenied
	// Conflict marks a lost optimistic-concurrency race; the caller must
	// re-read and retry.
	Conflict
	// Unavailable marks an infrastructure failure that is retryable with
	// backoff.
	Unavailable
)

func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case Conflict:
		return "conflict"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a coded registry error.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on bare codes via Coded.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code && (other.Msg == "" || other.Msg == e.Msg)
	}
	return false
}

// New returns a coded error with a fixed message.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Errorf returns a coded error with a formatted message.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the code from err, defaulting to Internal for uncoded
// errors and the zero Code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Internal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Code == code
}

// HTTPStatus maps a code to the status the API adapter responds with.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case PermissionDenied:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
