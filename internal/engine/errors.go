package engine

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable outcome identifier returned to API
// clients alongside the HTTP status.
type Code string

const (
	CodeOK                Code = "OK"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeWorkerUnavailable Code = "WORKER_UNAVAILABLE"
	CodeReviewExists      Code = "REVIEW_ALREADY_EXISTS"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error carries a taxonomy code with an operator-facing message. Authorization
// failures deliberately use CodeNotFound so callers cannot probe for records
// they are not party to.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the taxonomy code, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound() error {
	return &Error{Code: CodeNotFound, Message: "record not found"}
}

func stateConflictf(format string, args ...any) error {
	return &Error{Code: CodeStateConflict, Message: fmt.Sprintf(format, args...)}
}

func workerUnavailable() error {
	return &Error{Code: CodeWorkerUnavailable, Message: "worker is not available to start new work"}
}

func internal(op string, err error) error {
	return &Error{Code: CodeInternal, Message: op, Err: err}
}
