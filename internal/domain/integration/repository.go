package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoreRepository persists Store aggregates
type StoreRepository interface {
	// FindByIDForOwner returns the store with id owned by ownerID, or *NotFoundError
	FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*Store, error)

	// FindByNaturalKey returns the store for (ownerID, platform, externalStoreID), or *NotFoundError
	FindByNaturalKey(ctx context.Context, ownerID uuid.UUID, platform PlatformCode, externalStoreID string) (*Store, error)

	// UpsertConnection inserts the store or, on a natural key conflict, replaces
	// name, URL and envelope, re-activates it and refreshes connected_at.
	// sync_status of an existing row is left untouched.
	UpsertConnection(ctx context.Context, store *Store) error

	// ListActiveByOwner returns active stores, most recently connected first
	ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]Store, error)

	// ListDueForSync returns active stores whose last sync is older than
	// syncedBefore (or that were never synced) and are not mid-sync
	ListDueForSync(ctx context.Context, syncedBefore time.Time, limit int) ([]Store, error)

	// TryStartSync moves the store to syncing only if it is not already syncing,
	// or if the running pass started before staleBefore. Returns false when
	// another pass holds the store.
	TryStartSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (bool, error)

	// FinishSync moves the store to a terminal status. lastSyncedAt is only
	// written when non-nil.
	FinishSync(ctx context.Context, id uuid.UUID, status SyncStatus, lastSyncedAt *time.Time) error
}

// ProductRepository persists canonical products
type ProductRepository interface {
	// UpsertBatch writes all products for storeID in one transaction, keyed by
	// (store_id, external_id). The first failing item rolls back the batch and
	// is reported as *UpsertFailure.
	UpsertBatch(ctx context.Context, storeID uuid.UUID, products []CanonicalProduct, syncedAt time.Time) error

	// Upsert writes a single product
	Upsert(ctx context.Context, storeID uuid.UUID, product CanonicalProduct, syncedAt time.Time) error

	// CountByStores returns product counts keyed by store id; stores without
	// products are absent from the map
	CountByStores(ctx context.Context, storeIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	// FindByExternalID returns one product, or *NotFoundError
	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*CanonicalProduct, error)
}

// ActivityLogRepository is the append-only store for activity entries
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *ActivityLogEntry) error
	// ListByStore returns the newest entries first
	ListByStore(ctx context.Context, ownerID, storeID uuid.UUID, limit int) ([]ActivityLogEntry, error)
}
