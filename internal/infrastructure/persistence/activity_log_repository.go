package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const defaultActivityListLimit = 50

// GormActivityLogRepository implements integration.ActivityLogRepository.
// Rows are only ever inserted.
type GormActivityLogRepository struct {
	db *gorm.DB
}

// NewGormActivityLogRepository creates a new GormActivityLogRepository
func NewGormActivityLogRepository(db *gorm.DB) *GormActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

var _ integration.ActivityLogRepository = (*GormActivityLogRepository)(nil)

// Append inserts one entry
func (r *GormActivityLogRepository) Append(ctx context.Context, entry *integration.ActivityLogEntry) error {
	var model models.ActivityLogModel
	if err := model.FromDomain(entry); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByStore returns the newest entries of one store owned by ownerID
func (r *GormActivityLogRepository) ListByStore(ctx context.Context, ownerID, storeID uuid.UUID, limit int) ([]integration.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = defaultActivityListLimit
	}

	var logModels []models.ActivityLogModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND store_id = ?", ownerID, storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]integration.ActivityLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = *logModels[i].ToDomain()
	}
	return entries, nil
}
