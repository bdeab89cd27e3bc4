package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Ingestion pipeline failures. Format and structural errors are kept
	// distinct so operators can tell "wrong file" from "right file, shifted
	// columns".
	ErrInvalidFormat      = New("INVALID_FORMAT", http.StatusBadRequest, "unsupported report format")
	ErrStructuralMismatch = New("STRUCTURAL_MISMATCH", http.StatusBadRequest, "report columns do not match expected layout")

	// Business-rule rejections.
	ErrDuplicatePeriod     = New("DUPLICATE_PERIOD", http.StatusBadRequest, "payroll already processed for this month")
	ErrNoSalaryStructure   = New("NO_SALARY_STRUCTURE", http.StatusNotFound, "no active salary structure found")
	ErrInsufficientBalance = New("INSUFFICIENT_BALANCE", http.StatusBadRequest, "insufficient leave balance")
	ErrOverlappingLeave    = New("OVERLAPPING_LEAVE", http.StatusBadRequest, "an existing leave request overlaps these dates")
	ErrPaymentFailed       = New("PAYMENT_FAILED", http.StatusBadGateway, "payment processing failed")

	// ErrCacheMiss is a sentinel for cache lookups; never surfaced to clients.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
