package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDuplicateDocument  = errors.New("duplicate document key")
	ErrMalformedRecord    = errors.New("malformed corpus record")
	ErrMissingGroundTruth = errors.New("query missing from ground truth")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrSnapshotMismatch   = errors.New("snapshot does not match corpus")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMissingGroundTruth):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateDocument), errors.Is(err, ErrSnapshotMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedRecord):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
