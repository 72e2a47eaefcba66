// Package errors provides the standardized error taxonomy for the intake
// pipeline. Every error carries a code and a Retryable flag; the dispatcher
// uses the flag to decide between the retry path and immediate rejection.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation / request shape errors. Never retried.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeAmbiguousShape   ErrorCode = "AMBIGUOUS_SHAPE"

	// Canonicalization errors. Never retried; existing data is never touched.
	ErrCodeCollision ErrorCode = "COLLISION"

	// Expansion errors. A request resolving to zero work units is an error,
	// not a silent skip.
	ErrCodeEmptyExpansion ErrorCode = "EMPTY_EXPANSION"

	// Dispatch errors. Transient codes are retried with backoff, terminal
	// codes are reported immediately.
	ErrCodeDispatchThrottled   ErrorCode = "DISPATCH_THROTTLED"
	ErrCodeDispatchTimeout     ErrorCode = "DISPATCH_TIMEOUT"
	ErrCodeDispatchUnavailable ErrorCode = "DISPATCH_UNAVAILABLE"
	ErrCodePayloadRejected     ErrorCode = "PAYLOAD_REJECTED"
	ErrCodeAuthorizationDenied ErrorCode = "AUTHORIZATION_DENIED"

	// Catalog / boundary lookup errors.
	ErrCodeCatalogLookupFailed ErrorCode = "CATALOG_LOOKUP_FAILED"
	ErrCodeFileNotInCatalog    ErrorCode = "FILE_NOT_IN_CATALOG"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsStandard unwraps err to a *StandardError if one is in the chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	ok := errors.As(err, &se)
	return se, ok
}

// IsRetryable reports whether err is a StandardError marked retryable.
// Unclassified errors are treated as transient: the downstream function
// gives no explicit "malformed payload" marker for them, so the retry
// path is the correct interpretation.
func IsRetryable(err error) bool {
	if se, ok := AsStandard(err); ok {
		return se.Retryable
	}
	return true
}

// CodeOf returns the error code, or empty for unclassified errors.
func CodeOf(err error) ErrorCode {
	if se, ok := AsStandard(err); ok {
		return se.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError marks an item that failed schema or semantic
// validation. Non-retryable.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAmbiguousShapeError marks an item matching both or neither request
// variants. Non-retryable.
func NewAmbiguousShapeError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAmbiguousShape,
		Message:   "Request matches neither or both request shapes",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCollisionError marks a canonical key already occupied by a distinct
// archived request. Non-retryable; the existing file is left untouched.
func NewCollisionError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCollision,
		Message:   "Canonical key already occupied",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyExpansionError marks a request that resolved to zero payloads.
func NewEmptyExpansionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyExpansion,
		Message:   "Request expanded to zero invocation payloads",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewThrottledError creates a retryable throttling error.
func NewThrottledError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchThrottled,
		Message:   "Downstream function throttled the invocation",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchTimeoutError creates a retryable per-dispatch timeout error.
func NewDispatchTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchTimeout,
		Message:   "Invocation timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchUnavailableError creates a retryable transport error.
func NewDispatchUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchUnavailable,
		Message:   "Downstream function unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadRejectedError marks a payload refused as malformed by the
// downstream function. Terminal, never retried.
func NewPayloadRejectedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadRejected,
		Message:   "Payload rejected as malformed by downstream function",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthorizationDeniedError marks an invocation refused for missing
// permissions. Terminal, never retried.
func NewAuthorizationDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthorizationDenied,
		Message:   "Invocation not authorized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogLookupFailedError creates a retryable catalog backend error.
func NewCatalogLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLookupFailed,
		Message:   "File catalog lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileNotInCatalogError marks a requested filename absent from the
// catalog. Non-retryable.
func NewFileNotInCatalogError(filename string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileNotInCatalog,
		Message:   "Requested file not present in catalog",
		Details:   fmt.Sprintf("filename: %s", filename),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
