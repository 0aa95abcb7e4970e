package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncStatus represents the catalog synchronization state of a store
// ---------------------------------------------------------------------------

// SyncStatus represents the catalog synchronization state of a store
type SyncStatus string

const (
	// SyncStatusPending indicates the store has never been synced
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSyncing indicates a sync pass is running
	SyncStatusSyncing SyncStatus = "syncing"
	// SyncStatusCompleted indicates the last sync pass succeeded
	SyncStatusCompleted SyncStatus = "completed"
	// SyncStatusFailed indicates the last sync pass failed
	SyncStatusFailed SyncStatus = "failed"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSyncing, SyncStatusCompleted, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// IsTerminal returns true for completed and failed
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// CanTransitionTo reports whether the state machine allows s -> next.
// pending -> syncing -> {completed, failed}; terminal states may restart a pass.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case SyncStatusPending, SyncStatusCompleted, SyncStatusFailed:
		return next == SyncStatusSyncing
	case SyncStatusSyncing:
		return next.IsTerminal()
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Store aggregate
// ---------------------------------------------------------------------------

// Store is an owner's connection to one platform instance.
// It is unique on (OwnerID, Platform, ExternalStoreID).
type Store struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	// Platform is the registry tag of the adapter serving this store
	Platform PlatformCode
	// ExternalStoreID is the platform's own store identifier
	ExternalStoreID string
	StoreName       string
	StoreURL        string
	// CredentialEnvelope is the sealed credential blob, opaque outside the vault
	CredentialEnvelope []byte
	IsActive           bool
	SyncStatus         SyncStatus
	// SyncStartedAt is set when the store enters syncing; used to detect abandoned passes
	SyncStartedAt *time.Time
	LastSyncedAt  *time.Time
	ConnectedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewStore creates a store from a successful platform handshake.
// New stores start active and pending.
func NewStore(ownerID uuid.UUID, platform PlatformCode, conn *ConnectionResult, envelope []byte) (*Store, error) {
	if ownerID == uuid.Nil {
		return nil, NewValidationError("owner_id", "is required")
	}
	if conn == nil || conn.ExternalStoreID == "" {
		return nil, NewValidationError("external_store_id", "is required")
	}
	if len(envelope) == 0 {
		return nil, NewValidationError("credentials", "sealed credentials are required")
	}

	now := time.Now().UTC()
	return &Store{
		ID:                 uuid.New(),
		OwnerID:            ownerID,
		Platform:           platform,
		ExternalStoreID:    conn.ExternalStoreID,
		StoreName:          conn.StoreName,
		StoreURL:           conn.StoreURL,
		CredentialEnvelope: envelope,
		IsActive:           true,
		SyncStatus:         SyncStatusPending,
		ConnectedAt:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsSyncAbandoned returns true if the store claims to be syncing but the pass
// started before the cutoff
func (s *Store) IsSyncAbandoned(cutoff time.Time) bool {
	if s.SyncStatus != SyncStatusSyncing {
		return false
	}
	return s.SyncStartedAt == nil || s.SyncStartedAt.Before(cutoff)
}

// StoreSummary is the read model returned by List
type StoreSummary struct {
	ID           uuid.UUID
	Platform     PlatformCode
	StoreName    string
	StoreURL     string
	IsActive     bool
	ConnectedAt  time.Time
	LastSyncedAt *time.Time
	SyncStatus   SyncStatus
	ProductCount int64
}
