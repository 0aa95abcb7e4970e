package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStoreRepository implements integration.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

var _ integration.StoreRepository = (*GormStoreRepository)(nil)

func storeNotFound(id string) error {
	return &integration.NotFoundError{Resource: "store", ID: id}
}

// FindByIDForOwner finds a store by ID within the owner's scope. A store that
// exists but belongs to someone else is reported as not found.
func (r *GormStoreRepository) FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*integration.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storeNotFound(id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNaturalKey finds a store by (owner, platform, external store id)
func (r *GormStoreRepository) FindByNaturalKey(ctx context.Context, ownerID uuid.UUID, platform integration.PlatformCode, externalStoreID string) (*integration.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND platform = ? AND external_store_id = ?", ownerID, platform, externalStoreID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storeNotFound(externalStoreID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertConnection inserts the store or refreshes the existing row with the
// same natural key. sync_status and sync timestamps are not part of the
// conflict update.
func (r *GormStoreRepository) UpsertConnection(ctx context.Context, store *integration.Store) error {
	model := models.StoreModelFromDomain(store)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "platform"}, {Name: "external_store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"store_name", "store_url", "credential_envelope", "is_active", "connected_at", "updated_at",
			}),
		}).
		Create(model).Error
}

// ListActiveByOwner returns the owner's active stores, newest connection first
func (r *GormStoreRepository) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]integration.Store, error) {
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("connected_at DESC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]integration.Store, len(storeModels))
	for i := range storeModels {
		stores[i] = *storeModels[i].ToDomain()
	}
	return stores, nil
}

// ListDueForSync returns active, idle stores whose last sync is older than
// syncedBefore. Never-synced stores come first.
func (r *GormStoreRepository) ListDueForSync(ctx context.Context, syncedBefore time.Time, limit int) ([]integration.Store, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND sync_status <> ?", true, integration.SyncStatusSyncing).
		Where("last_synced_at IS NULL OR last_synced_at < ?", syncedBefore).
		Order("last_synced_at IS NOT NULL, last_synced_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var storeModels []models.StoreModel
	if err := query.Find(&storeModels).Error; err != nil {
		return nil, err
	}

	stores := make([]integration.Store, len(storeModels))
	for i := range storeModels {
		stores[i] = *storeModels[i].ToDomain()
	}
	return stores, nil
}

// TryStartSync is a conditional transition into syncing. The WHERE clause is
// the lock: of two concurrent callers only one sees a row affected.
func (r *GormStoreRepository) TryStartSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StoreModel{}).
		Where("id = ? AND (sync_status <> ? OR sync_started_at IS NULL OR sync_started_at < ?)",
			id, integration.SyncStatusSyncing, staleBefore).
		Updates(map[string]any{
			"sync_status":     integration.SyncStatusSyncing,
			"sync_started_at": startedAt,
			"updated_at":      startedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FinishSync moves the store to a terminal status
func (r *GormStoreRepository) FinishSync(ctx context.Context, id uuid.UUID, status integration.SyncStatus, lastSyncedAt *time.Time) error {
	if !status.IsTerminal() {
		return integration.NewValidationError("sync_status", "must be completed or failed")
	}

	updates := map[string]any{
		"sync_status": status,
		"updated_at":  time.Now().UTC(),
	}
	if lastSyncedAt != nil {
		updates["last_synced_at"] = *lastSyncedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.StoreModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storeNotFound(id.String())
	}
	return nil
}
