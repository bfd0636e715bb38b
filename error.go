package federation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure per the service's error taxonomy. The REST
// layer maps codes to HTTP statuses; callers never see underlying store or
// cache error text.
type ErrorCode int

const (
	Internal ErrorCode = iota
	InvalidArgument
	NotFound
	Conflict
	Unauthenticated
	Forbidden
	PayloadTooLarge
	DatabaseOperationFailed
	CacheOperationFailed
)

// Error is the service's coded error.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a coded error with the given message.
func NewError(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Errorf creates a coded error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapError creates a coded error wrapping an underlying cause. The cause is
// kept for logging but is not part of the caller-visible message.
func WrapError(code ErrorCode, msg string, err error) error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the ErrorCode from err, defaulting to Internal.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Internal
}

// Message returns the caller-visible message of err. For non-coded errors a
// generic message is returned so internal details don't leak.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return "internal error"
}

// HTTPStatus maps an ErrorCode to the HTTP status the wire protocol uses.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case DatabaseOperationFailed, CacheOperationFailed, Internal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
