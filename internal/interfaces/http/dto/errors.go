package dto

import (
	"net/http"

	"github.com/paymentmanager/backend/internal/domain/shared"
)

// API error codes carried in ErrorInfo.Code. Each maps to one HTTP status.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeEvidenceRequired = "ERR_EVIDENCE_REQUIRED"

	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict answers a request overtaken by a newer one.
	ErrCodeConflict = "ERR_CONFLICT"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeInvalidFile  = "ERR_INVALID_FILE"
	ErrCodeFileTooLarge = "ERR_FILE_TOO_LARGE"

	ErrCodeDataSourceUnavailable = "ERR_DATA_SOURCE_UNAVAILABLE"
	ErrCodePersistenceFailed     = "ERR_PERSISTENCE_FAILED"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

var statusOf = map[string]int{
	ErrCodeUnknown:               http.StatusInternalServerError,
	ErrCodeInternal:              http.StatusInternalServerError,
	ErrCodeValidation:            http.StatusBadRequest,
	ErrCodeEvidenceRequired:      http.StatusBadRequest,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeBadRequest:            http.StatusBadRequest,
	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeInvalidJSON:           http.StatusBadRequest,
	ErrCodeInvalidFile:           http.StatusBadRequest,
	ErrCodeFileTooLarge:          http.StatusRequestEntityTooLarge,
	ErrCodeDataSourceUnavailable: http.StatusBadGateway,
	ErrCodePersistenceFailed:     http.StatusInternalServerError,
	ErrCodeRateLimited:           http.StatusTooManyRequests,
}

// fromDomain translates shared.DomainError codes.
var fromDomain = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeInvalidInput:          ErrCodeInvalidInput,
	shared.CodeValidationFailed:      ErrCodeValidation,
	shared.CodeEvidenceRequired:      ErrCodeEvidenceRequired,
	shared.CodeInvalidFile:           ErrCodeInvalidFile,
	shared.CodeFileTooLarge:          ErrCodeFileTooLarge,
	shared.CodeDataSourceUnavailable: ErrCodeDataSourceUnavailable,
	shared.CodePersistenceFailed:     ErrCodePersistenceFailed,
	shared.CodeStaleResponse:         ErrCodeConflict,
}

// GetHTTPStatus returns the status for an API error code, 500 when the
// code is not one of ours.
func GetHTTPStatus(code string) int {
	if status, ok := statusOf[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode maps a domain code to its API code. Anything else is
// returned unchanged.
func NormalizeErrorCode(code string) string {
	if api, ok := fromDomain[code]; ok {
		return api
	}
	return code
}
