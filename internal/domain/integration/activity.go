package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityAction tags an activity log entry
type ActivityAction string

const (
	ActivityStoreConnected ActivityAction = "store_connected"
	ActivitySyncCompleted  ActivityAction = "sync_completed"
	ActivitySyncFailed     ActivityAction = "sync_failed"
	ActivityProductUpdated ActivityAction = "product_updated"
)

// String returns the string representation of ActivityAction
func (a ActivityAction) String() string {
	return string(a)
}

// ActivityLogEntry is an immutable audit record
type ActivityLogEntry struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	// StoreID is nil for events not tied to a store
	StoreID   *uuid.UUID
	Action    ActivityAction
	Details   map[string]any
	CreatedAt time.Time
}

// NewActivityLogEntry creates an entry stamped with the current time
func NewActivityLogEntry(ownerID uuid.UUID, storeID *uuid.UUID, action ActivityAction, details map[string]any) *ActivityLogEntry {
	if details == nil {
		details = map[string]any{}
	}
	return &ActivityLogEntry{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		StoreID:   storeID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// ActivityRecorder appends activity entries on a best-effort basis.
// Record never reports failure to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, ownerID uuid.UUID, storeID *uuid.UUID, action ActivityAction, details map[string]any)
}
