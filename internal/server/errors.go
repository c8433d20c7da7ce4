package server

import (
	"errors"
	"fmt"
	"net/http"
)

type errorKind int

const (
	errInternal errorKind = iota
	errValidation
	errForbidden
	errNotFound
	errConflict
	errInvalidState
	errCapacity
)

// apiError is the typed failure every core operation returns. Each kind maps
// to one HTTP status; the message is short and user-visible.
type apiError struct {
	kind    errorKind
	message string
	cause   error
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *apiError) Unwrap() error {
	return e.cause
}

func (e *apiError) Status() int {
	switch e.kind {
	case errValidation:
		return http.StatusBadRequest
	case errForbidden:
		return http.StatusForbidden
	case errNotFound:
		return http.StatusNotFound
	case errConflict:
		return http.StatusConflict
	case errInvalidState:
		return http.StatusConflict
	case errCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func validationError(format string, args ...any) error {
	return &apiError{kind: errValidation, message: fmt.Sprintf(format, args...)}
}

func forbiddenError(message string) error {
	return &apiError{kind: errForbidden, message: message}
}

func notFoundError(message string) error {
	return &apiError{kind: errNotFound, message: message}
}

func conflictError(message string) error {
	return &apiError{kind: errConflict, message: message}
}

func invalidStateError(message string) error {
	return &apiError{kind: errInvalidState, message: message}
}

func capacityError(message string) error {
	return &apiError{kind: errCapacity, message: message}
}

func internalError(message string, cause error) error {
	return &apiError{kind: errInternal, message: message, cause: cause}
}

func errorIs(err error, kind errorKind) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.kind == kind
	}
	return false
}
