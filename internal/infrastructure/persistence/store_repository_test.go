package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ownerID uuid.UUID, externalID, name string) *integration.Store {
	t.Helper()
	store, err := integration.NewStore(ownerID, integration.PlatformCodeShopify, &integration.ConnectionResult{
		ExternalStoreID: externalID,
		StoreName:       name,
		StoreURL:        name + ".myshopify.com",
	}, []byte(`{"ciphertext":"YQ==","nonce":"Yg==","tag":"Yw=="}`))
	require.NoError(t, err)
	return store
}

func TestGormStoreRepository_UpsertConnection(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormStoreRepository(db.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("inserts a pending store", func(t *testing.T) {
		store := newTestStore(t, ownerID, "1001", "demo")
		require.NoError(t, repo.UpsertConnection(ctx, store))

		found, err := repo.FindByNaturalKey(ctx, ownerID, integration.PlatformCodeShopify, "1001")
		require.NoError(t, err)
		assert.Equal(t, store.ID, found.ID)
		assert.Equal(t, "demo", found.StoreName)
		assert.Equal(t, integration.SyncStatusPending, found.SyncStatus)
		assert.True(t, found.IsActive)
		assert.Equal(t, store.CredentialEnvelope, found.CredentialEnvelope)
		assert.Nil(t, found.LastSyncedAt)
	})

	t.Run("reconnect refreshes the existing row", func(t *testing.T) {
		original, err := repo.FindByNaturalKey(ctx, ownerID, integration.PlatformCodeShopify, "1001")
		require.NoError(t, err)

		lastSynced := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.FinishSync(ctx, original.ID, integration.SyncStatusCompleted, &lastSynced))
		require.NoError(t, db.DB.Model(&models.StoreModel{}).Where("id = ?", original.ID).Update("is_active", false).Error)

		again := newTestStore(t, ownerID, "1001", "demo-renamed")
		again.CredentialEnvelope = []byte(`{"ciphertext":"eg==","nonce":"eQ==","tag":"eA=="}`)
		again.ConnectedAt = original.ConnectedAt.Add(time.Minute)
		require.NoError(t, repo.UpsertConnection(ctx, again))

		found, err := repo.FindByNaturalKey(ctx, ownerID, integration.PlatformCodeShopify, "1001")
		require.NoError(t, err)
		assert.Equal(t, original.ID, found.ID, "natural key keeps the first id")
		assert.Equal(t, "demo-renamed", found.StoreName)
		assert.Equal(t, "demo-renamed.myshopify.com", found.StoreURL)
		assert.Equal(t, again.CredentialEnvelope, found.CredentialEnvelope)
		assert.True(t, found.IsActive)
		assert.True(t, found.ConnectedAt.After(original.ConnectedAt))
		assert.Equal(t, integration.SyncStatusCompleted, found.SyncStatus, "reconnect leaves sync state alone")
		require.NotNil(t, found.LastSyncedAt)

		var count int64
		require.NoError(t, db.DB.Model(&models.StoreModel{}).Where("owner_id = ?", ownerID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("same external id for another owner is a different store", func(t *testing.T) {
		other := newTestStore(t, uuid.New(), "1001", "demo")
		require.NoError(t, repo.UpsertConnection(ctx, other))

		var count int64
		require.NoError(t, db.DB.Model(&models.StoreModel{}).Where("external_store_id = ?", "1001").Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormStoreRepository_FindByIDForOwner(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormStoreRepository(db.DB)
	ctx := context.Background()
	ownerID := uuid.New()

	store := newTestStore(t, ownerID, "42", "shop")
	require.NoError(t, repo.UpsertConnection(ctx, store))

	found, err := repo.FindByIDForOwner(ctx, store.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, store.ID, found.ID)

	_, err = repo.FindByIDForOwner(ctx, store.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, integration.IsNotFound(err), "foreign store is reported as missing")

	_, err = repo.FindByIDForOwner(ctx, uuid.New(), ownerID)
	assert.True(t, integration.IsNotFound(err))
}

func TestGormStoreRepository_ListActiveByOwner(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormStoreRepository(db.DB)
	ctx := context.Background()
	ownerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	for i, ext := range []string{"a", "b", "c"} {
		s := newTestStore(t, ownerID, ext, "store-"+ext)
		s.ConnectedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.UpsertConnection(ctx, s))
	}
	inactive := newTestStore(t, ownerID, "d", "store-d")
	require.NoError(t, repo.UpsertConnection(ctx, inactive))
	require.NoError(t, db.DB.Model(&models.StoreModel{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	require.NoError(t, repo.UpsertConnection(ctx, newTestStore(t, uuid.New(), "e", "someone-else")))

	stores, err := repo.ListActiveByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, "c", stores[0].ExternalStoreID)
	assert.Equal(t, "b", stores[1].ExternalStoreID)
	assert.Equal(t, "a", stores[2].ExternalStoreID)

	empty, err := repo.ListActiveByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormStoreRepository_SyncTransitions(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormStoreRepository(db.DB)
	ctx := context.Background()

	store := newTestStore(t, uuid.New(), "77", "shop")
	require.NoError(t, repo.UpsertConnection(ctx, store))

	now := time.Now().UTC()
	staleBefore := now.Add(-30 * time.Minute)

	t.Run("pending store can start", func(t *testing.T) {
		ok, err := repo.TryStartSync(ctx, store.ID, now, staleBefore)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.FindByIDForOwner(ctx, store.ID, store.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSyncing, found.SyncStatus)
		require.NotNil(t, found.SyncStartedAt)
	})

	t.Run("second start is rejected while syncing", func(t *testing.T) {
		ok, err := repo.TryStartSync(ctx, store.ID, now.Add(time.Second), staleBefore)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("abandoned pass can be taken over", func(t *testing.T) {
		later := now.Add(time.Hour)
		ok, err := repo.TryStartSync(ctx, store.ID, later, later.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("terminal state is re-entrant", func(t *testing.T) {
		syncedAt := time.Now().UTC()
		require.NoError(t, repo.FinishSync(ctx, store.ID, integration.SyncStatusFailed, nil))

		found, err := repo.FindByIDForOwner(ctx, store.ID, store.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusFailed, found.SyncStatus)
		assert.Nil(t, found.LastSyncedAt, "failed pass does not stamp last_synced_at")

		ok, err := repo.TryStartSync(ctx, store.ID, syncedAt, syncedAt.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, repo.FinishSync(ctx, store.ID, integration.SyncStatusCompleted, &syncedAt))
		found, err = repo.FindByIDForOwner(ctx, store.ID, store.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusCompleted, found.SyncStatus)
		require.NotNil(t, found.LastSyncedAt)
		assert.WithinDuration(t, syncedAt, *found.LastSyncedAt, time.Millisecond)
	})

	t.Run("unknown store cannot start", func(t *testing.T) {
		ok, err := repo.TryStartSync(ctx, uuid.New(), now, staleBefore)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("finish rejects non-terminal status", func(t *testing.T) {
		err := repo.FinishSync(ctx, store.ID, integration.SyncStatusSyncing, nil)
		var verr *integration.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("finish on unknown store is not found", func(t *testing.T) {
		err := repo.FinishSync(ctx, uuid.New(), integration.SyncStatusFailed, nil)
		assert.True(t, integration.IsNotFound(err))
	})
}

func TestGormStoreRepository_ListDueForSync(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormStoreRepository(db.DB)
	ctx := context.Background()
	ownerID := uuid.New()
	now := time.Now().UTC()

	never := newTestStore(t, ownerID, "never", "never")
	old := newTestStore(t, ownerID, "old", "old")
	fresh := newTestStore(t, ownerID, "fresh", "fresh")
	busy := newTestStore(t, ownerID, "busy", "busy")
	for _, s := range []*integration.Store{never, old, fresh, busy} {
		require.NoError(t, repo.UpsertConnection(ctx, s))
	}

	oldSync := now.Add(-12 * time.Hour)
	freshSync := now.Add(-time.Minute)
	require.NoError(t, repo.FinishSync(ctx, old.ID, integration.SyncStatusCompleted, &oldSync))
	require.NoError(t, repo.FinishSync(ctx, fresh.ID, integration.SyncStatusCompleted, &freshSync))
	ok, err := repo.TryStartSync(ctx, busy.ID, now, now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	due, err := repo.ListDueForSync(ctx, now.Add(-6*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "never", due[0].ExternalStoreID)
	assert.Equal(t, "old", due[1].ExternalStoreID)

	limited, err := repo.ListDueForSync(ctx, now.Add(-6*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "never", limited[0].ExternalStoreID)
}

func TestGormStoreRepository_TryStartSync_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormStoreRepository(db.DB)

	id := uuid.New()
	now := time.Now().UTC()

	t.Run("row updated", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "stores" SET .+ WHERE id = \$\d+ AND \(sync_status <> \$\d+ OR sync_started_at IS NULL OR sync_started_at < \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.TryStartSync(context.Background(), id, now, now.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("no row updated", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "stores" SET .+ WHERE id = \$\d+ AND \(sync_status <> \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.TryStartSync(context.Background(), id, now, now.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "stores"`).WillReturnError(assert.AnError)

		ok, err := repo.TryStartSync(context.Background(), id, now, now.Add(-30*time.Minute))
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
