package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormActivityLogRepository_AppendAndList(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormActivityLogRepository(db.DB)
	ctx := context.Background()

	ownerID := uuid.New()
	storeID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	actions := []integration.ActivityAction{
		integration.ActivityStoreConnected,
		integration.ActivitySyncFailed,
		integration.ActivitySyncCompleted,
	}
	for i, action := range actions {
		entry := integration.NewActivityLogEntry(ownerID, &storeID, action, map[string]any{"step": i})
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(ctx, entry))
	}

	// entries without a store and for other owners stay out of the listing
	require.NoError(t, repo.Append(ctx, integration.NewActivityLogEntry(ownerID, nil, integration.ActivityStoreConnected, nil)))
	require.NoError(t, repo.Append(ctx, integration.NewActivityLogEntry(uuid.New(), &storeID, integration.ActivitySyncCompleted, nil)))

	t.Run("newest first", func(t *testing.T) {
		entries, err := repo.ListByStore(ctx, ownerID, storeID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, integration.ActivitySyncCompleted, entries[0].Action)
		assert.Equal(t, integration.ActivitySyncFailed, entries[1].Action)
		assert.Equal(t, integration.ActivityStoreConnected, entries[2].Action)
		assert.Equal(t, float64(2), entries[0].Details["step"])
		require.NotNil(t, entries[0].StoreID)
		assert.Equal(t, storeID, *entries[0].StoreID)
	})

	t.Run("limit", func(t *testing.T) {
		entries, err := repo.ListByStore(ctx, ownerID, storeID, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, integration.ActivitySyncCompleted, entries[0].Action)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		entries, err := repo.ListByStore(ctx, uuid.New(), storeID, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestGormActivityLogRepository_AppendRejectsUnencodableDetails(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormActivityLogRepository(db.DB)

	entry := integration.NewActivityLogEntry(uuid.New(), nil, integration.ActivityProductUpdated, map[string]any{
		"bad": make(chan int),
	})
	err := repo.Append(context.Background(), entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode activity details")
}
