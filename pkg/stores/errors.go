package stores

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id-addressed row does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrUnsupported is returned when the selected backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by backend")

	// ErrBackendUnavailable is returned when switching to a backend that is not reachable.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrInvalidOrder wraps validation failures at the entry point.
	ErrInvalidOrder = errors.New("invalid order")
)

// OpError records the backend and operation that failed.
type OpError struct {
	Backend   Backend
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Backend, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(backend Backend, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Backend: backend, Operation: operation, Err: err}
}
