package integration

import (
	"errors"
	"fmt"
)

// Error codes carried by the typed errors below. The HTTP layer maps them to
// status codes.
const (
	CodeValidation           = "ERR_VALIDATION"
	CodeUnsupportedPlatform  = "ERR_UNSUPPORTED_PLATFORM"
	CodePlatformConnection   = "ERR_PLATFORM_CONNECTION"
	CodeCredentialDecryption = "ERR_CREDENTIAL_DECRYPTION"
	CodeNotFound             = "ERR_NOT_FOUND"
	CodeSyncInProgress       = "ERR_SYNC_IN_PROGRESS"
	CodeUpsertFailed         = "ERR_UPSERT_FAILED"
	CodePlatformUpdate       = "ERR_PLATFORM_UPDATE"
	CodeSyncState            = "ERR_SYNC_STATE"
)

// CodedError is implemented by every error kind of this package
type CodedError interface {
	error
	Code() string
}

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// ValidationError reports malformed caller input. It is raised before any
// network or crypto work.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code implements CodedError
func (e *ValidationError) Code() string { return CodeValidation }

// ---------------------------------------------------------------------------
// UnsupportedPlatformError
// ---------------------------------------------------------------------------

// UnsupportedPlatformError is returned when no adapter is registered for a
// platform tag. It is a configuration error and never retried.
type UnsupportedPlatformError struct {
	Platform PlatformCode
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

// Code implements CodedError
func (e *UnsupportedPlatformError) Code() string { return CodeUnsupportedPlatform }

// ---------------------------------------------------------------------------
// ConnectionError
// ---------------------------------------------------------------------------

// ConnectionError reports an unreachable platform or rejected credentials
type ConnectionError struct {
	Platform PlatformCode
	Message  string
	Err      error
}

// NewConnectionError creates a ConnectionError wrapping err
func NewConnectionError(platform PlatformCode, message string, err error) *ConnectionError {
	return &ConnectionError{Platform: platform, Message: message, Err: err}
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to connect to %s: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("failed to connect to %s: %s", e.Platform, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Code implements CodedError
func (e *ConnectionError) Code() string { return CodePlatformConnection }

// ---------------------------------------------------------------------------
// CredentialDecryptionError
// ---------------------------------------------------------------------------

// CredentialDecryptionError reports a tampered or corrupt envelope or a wrong
// key. The store needs to be reconnected. Reason never contains key material
// or ciphertext.
type CredentialDecryptionError struct {
	Reason string
	Err    error
}

func (e *CredentialDecryptionError) Error() string {
	return "stored credentials could not be decrypted: " + e.Reason
}

func (e *CredentialDecryptionError) Unwrap() error { return e.Err }

// Code implements CodedError
func (e *CredentialDecryptionError) Code() string { return CodeCredentialDecryption }

// ---------------------------------------------------------------------------
// NotFoundError
// ---------------------------------------------------------------------------

// NotFoundError is returned when a resource does not exist or is not owned by
// the caller. Both cases are reported identically.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// Code implements CodedError
func (e *NotFoundError) Code() string { return CodeNotFound }

// ---------------------------------------------------------------------------
// SyncInProgressError
// ---------------------------------------------------------------------------

// SyncInProgressError is returned when another sync pass holds the store
type SyncInProgressError struct {
	StoreID string
}

func (e *SyncInProgressError) Error() string {
	return "a sync is already in progress for this store"
}

// Code implements CodedError
func (e *SyncInProgressError) Code() string { return CodeSyncInProgress }

// ---------------------------------------------------------------------------
// UpsertFailure
// ---------------------------------------------------------------------------

// UpsertFailure reports a storage write error during a sync pass. The whole
// batch is rolled back.
type UpsertFailure struct {
	ExternalID string
	Err        error
}

func (e *UpsertFailure) Error() string {
	return fmt.Sprintf("failed to store product %s: %v", e.ExternalID, e.Err)
}

func (e *UpsertFailure) Unwrap() error { return e.Err }

// Code implements CodedError
func (e *UpsertFailure) Code() string { return CodeUpsertFailed }

// ---------------------------------------------------------------------------
// SyncStateError
// ---------------------------------------------------------------------------

// SyncStateError reports that a finished pass could not record its outcome on
// the store row
type SyncStateError struct {
	StoreID string
	Status  SyncStatus
	Err     error
}

func (e *SyncStateError) Error() string {
	return fmt.Sprintf("failed to record sync status %s for store %s: %v", e.Status, e.StoreID, e.Err)
}

func (e *SyncStateError) Unwrap() error { return e.Err }

// Code implements CodedError
func (e *SyncStateError) Code() string { return CodeSyncState }

// ---------------------------------------------------------------------------
// UpdateError
// ---------------------------------------------------------------------------

// UpdateError reports a failed product update on the platform
type UpdateError struct {
	Platform  PlatformCode
	ProductID string
	Message   string
	Err       error
}

func (e *UpdateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to update product %s on %s: %s: %v", e.ProductID, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("failed to update product %s on %s: %s", e.ProductID, e.Platform, e.Message)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Code implements CodedError
func (e *UpdateError) Code() string { return CodePlatformUpdate }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// ErrorCode returns the code of the first CodedError in err's chain, or ""
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// IsNotFound returns true if err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
