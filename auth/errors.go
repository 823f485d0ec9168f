package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for authentication and authorization outcomes.
// Use errors.Is against these to classify an *Error without inspecting Kind.
var (
	ErrUnauthorized    = errors.New("auth: unauthorized")
	ErrForbidden       = errors.New("auth: access denied")
	ErrNotFound        = errors.New("auth: not found")
	ErrAlreadyUsed     = errors.New("auth: already used")
	ErrExpired         = errors.New("auth: expired")
	ErrProvisionFailed = errors.New("auth: provisioning failed")
	ErrInvalidInput    = errors.New("auth: invalid input")
)

// Kind categorizes an authorization-layer failure.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindAlreadyUsed     Kind = "already_used"
	KindExpired         Kind = "expired"
	KindProvisionFailed Kind = "provision_failed"
	KindValidation      Kind = "validation"
)

var kindSentinels = map[Kind]error{
	KindUnauthorized:    ErrUnauthorized,
	KindForbidden:       ErrForbidden,
	KindNotFound:        ErrNotFound,
	KindAlreadyUsed:     ErrAlreadyUsed,
	KindExpired:         ErrExpired,
	KindProvisionFailed: ErrProvisionFailed,
	KindValidation:      ErrInvalidInput,
}

// HTTPStatus maps the kind to an HTTP-style status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindAlreadyUsed, KindExpired, KindValidation:
		return http.StatusBadRequest
	case KindProvisionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified authorization-layer failure with a stable kind and
// a human-readable detail string. Internal causes are carried in Err for
// logging and are not part of the externally visible message.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Error returns the externally visible message.
func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the sentinel for its kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Unauthorized creates a KindUnauthorized error.
func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

// Forbidden creates a KindForbidden error.
func Forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

// NotFoundError creates a KindNotFound error.
func NotFoundError(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

// ValidationError creates a KindValidation error.
func ValidationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

// Errorf creates an error of the given kind with a formatted detail.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from err, or wraps err as an internal
// provisioning failure when it is not already classified.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindProvisionFailed, Detail: "internal error", Err: err}
}
