package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidInput           = errors.New("invalid input")
	ErrMissingProfile         = errors.New("user goals are not set up")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// AppError carries an HTTP status alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Persistence wraps a data-access failure so callers can match ErrPersistenceUnavailable.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Message: op,
		Err:     errors.Join(ErrPersistenceUnavailable, err),
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrPersistenceUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
