package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes the client distinguishes.
//
// AuthenticationRequired is surfaced as a redirect to login, never as an
// error banner. MembershipRequired (the paywall) is surfaced as an upgrade
// prompt. TransientNetwork failures must not invalidate cached session or
// membership state unless they occur during an active refresh.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrMembershipRequired     = errors.New("membership required")
	ErrValidationFailed       = errors.New("validation failed")
	ErrTransientNetwork       = errors.New("transient network failure")
	ErrBackendInconsistency   = errors.New("backend inconsistency")
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AuthenticationRequired creates a 401 error. Handlers translate it into a
// redirect to the login route rather than rendering it.
func AuthenticationRequired(message string) *AppError {
	return &AppError{
		Code:    "AUTHENTICATION_REQUIRED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrAuthenticationRequired,
	}
}

// MembershipRequired creates a 403 paywall error carrying an upgrade hint.
func MembershipRequired(message string) *AppError {
	return &AppError{
		Code:    "MEMBERSHIP_REQUIRED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrMembershipRequired,
	}
}

// Validation creates a 400 error for a rejected request payload.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidationFailed,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// TransientNetwork creates a 503 error for a failed or timed-out backend call.
func TransientNetwork(message string, err error) *AppError {
	return &AppError{
		Code:    "BACKEND_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrTransientNetwork, err),
	}
}

// BackendInconsistency creates a 502 error for a backend response that
// violates its own contract (e.g. payment verified but detail payload
// missing). Surfaced as a "contact support" message, never as success.
func BackendInconsistency(message string) *AppError {
	return &AppError{
		Code:    "BACKEND_INCONSISTENCY",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrBackendInconsistency,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsTransient reports whether the error is a transient network failure.
// Cached session and membership state survives this class.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// IsAuthenticationRequired reports whether the error demands re-authentication.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMembershipRequired):
		return http.StatusForbidden
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTransientNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBackendInconsistency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
