// Package apperror provides structured error handling for the ledger.
// All business failures are expressed as AppError so the HTTP layer can
// render consistent problem responses without inspecting error strings.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Validation failures surface before any write; the ledger
// is left untouched by every error in this list.
const (
	// Infrastructure (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeMissingBatchNumber     = "MISSING_BATCH_NUMBER"
	CodeUnknownTransactionType = "UNKNOWN_TRANSACTION_TYPE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeReversalNotFound       = "REVERSAL_NOT_FOUND"

	// Authorization (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type across the ledger.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable description
	Message string `json:"message"`

	// Details carries additional context (scope, quantities, field names)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying cause (not exposed in JSON)
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/As over the cause chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewMissingBatchNumber is returned when a batch- or serial-tracked product
// arrives on a detail line without a usable batch/serial identifier.
func NewMissingBatchNumber(productID string) *AppError {
	return &AppError{
		Code:       CodeMissingBatchNumber,
		Message:    "Batch or serial number required for tracked product",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewUnknownTransactionType is returned for detail lines whose type has no
// direction mapping.
func NewUnknownTransactionType(txType string) *AppError {
	return &AppError{
		Code:       CodeUnknownTransactionType,
		Message:    "Transaction type has no direction mapping",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"transaction_type": txType},
	}
}

// NewInsufficientStock creates a stock shortage error.
func NewInsufficientStock(productID string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewReversalNotFound is returned when reversal is requested for a detail
// that never produced movements.
func NewReversalNotFound(detailID string) *AppError {
	return &AppError{
		Code:       CodeReversalNotFound,
		Message:    "No movements found for transaction detail",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"transaction_detail_id": detailID},
	}
}

// NewInternal creates an internal error that hides details from clients.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403).
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewIdempotencyConflict is returned when an operation with the same key is
// still in flight.
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused
// for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helpers ---

// AsAppError extracts an AppError from the error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a CodeNotFound error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsInsufficientStock reports whether err is a stock shortage.
func IsInsufficientStock(err error) bool {
	return IsCode(err, CodeInsufficientStock)
}

// GetHTTPStatus returns the HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
