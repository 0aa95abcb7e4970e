package dto

import (
	"net/http"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Domain error codes, re-exported from the integration package
const (
	ErrCodeValidation           = integration.CodeValidation
	ErrCodeUnsupportedPlatform  = integration.CodeUnsupportedPlatform
	ErrCodePlatformConnection   = integration.CodePlatformConnection
	ErrCodeCredentialDecryption = integration.CodeCredentialDecryption
	ErrCodeNotFound             = integration.CodeNotFound
	ErrCodeSyncInProgress       = integration.CodeSyncInProgress
	ErrCodeUpsertFailed         = integration.CodeUpsertFailed
	ErrCodePlatformUpdate       = integration.CodePlatformUpdate
	ErrCodeSyncState            = integration.CodeSyncState
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// caller mistakes
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeUnsupportedPlatform: http.StatusBadRequest,

	// the platform or the stored credentials cannot be used
	ErrCodePlatformConnection:   http.StatusUnprocessableEntity,
	ErrCodeCredentialDecryption: http.StatusUnprocessableEntity,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeSyncInProgress: http.StatusConflict,
	ErrCodeUpsertFailed:   http.StatusInternalServerError,
	ErrCodeSyncState:      http.StatusInternalServerError,
	ErrCodePlatformUpdate: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
