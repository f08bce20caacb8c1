package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTransientFetch     = "TRANSIENT_FETCH"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// Sentinel failure kinds. Lower layers wrap their causes with these so callers
// can branch with errors.Is without knowing the driver in use.
var (
	// ErrTransientFetch marks a failed remote read or write (network, 5xx, driver).
	ErrTransientFetch = stderrors.New("transient fetch error")
	// ErrStorageUnavailable marks an inaccessible local durable store.
	ErrStorageUnavailable = stderrors.New("local storage unavailable")
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// TransientFetch wraps a remote failure so that it matches ErrTransientFetch.
func TransientFetch(op string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ErrTransientFetch) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransientFetch, err)
}

// StorageUnavailable wraps a local store failure so that it matches ErrStorageUnavailable.
func StorageUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsTransientFetch reports whether err is (or wraps) a remote failure.
func IsTransientFetch(err error) bool {
	return stderrors.Is(err, ErrTransientFetch)
}

// IsStorageUnavailable reports whether err is (or wraps) a local store failure.
func IsStorageUnavailable(err error) bool {
	return stderrors.Is(err, ErrStorageUnavailable)
}

// ToAppError maps any error onto an AppError, keeping existing ones as they are.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case IsTransientFetch(err):
		return &AppError{
			Code:    ErrCodeTransientFetch,
			Message: "remote data source unavailable",
			Status:  http.StatusBadGateway,
			Err:     err,
		}
	case IsStorageUnavailable(err):
		return &AppError{
			Code:    ErrCodeStorageUnavailable,
			Message: "local storage unavailable",
			Status:  http.StatusServiceUnavailable,
			Err:     err,
		}
	default:
		return NewInternalError(err)
	}
}
