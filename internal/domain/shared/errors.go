package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match wrapped errors against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the original cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeDataSourceUnavailable = "DATA_SOURCE_UNAVAILABLE"
	CodeStaleResponse         = "STALE_RESPONSE_DISCARDED"
	CodePersistenceFailed     = "PERSISTENCE_FAILED"
	CodeEvidenceRequired      = "EVIDENCE_REQUIRED"
	CodeInvalidFile           = "INVALID_FILE"
	CodeFileTooLarge          = "FILE_TOO_LARGE"
)

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidationFailed      = NewDomainError(CodeValidationFailed, "Validation failed")
	ErrDataSourceUnavailable = NewDomainError(CodeDataSourceUnavailable, "Reference data source is unavailable")
	ErrStaleResponse         = NewDomainError(CodeStaleResponse, "Response no longer matches the current selection")
	ErrPersistenceFailed     = NewDomainError(CodePersistenceFailed, "Payment could not be saved")
	ErrEvidenceRequired      = NewDomainError(CodeEvidenceRequired, "Cannot mark payment as completed without an evidence file")
)
