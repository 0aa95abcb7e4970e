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

// GormProductRepository implements integration.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ integration.ProductRepository = (*GormProductRepository)(nil)

var productConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "store_id"}, {Name: "external_id"}},
	DoUpdates: clause.AssignmentColumns(models.ProductUpsertColumns),
}

// UpsertBatch writes products one by one inside a single transaction. The
// first failure aborts and rolls back the whole batch.
func (r *GormProductRepository) UpsertBatch(ctx context.Context, storeID uuid.UUID, products []integration.CanonicalProduct, syncedAt time.Time) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range products {
			if err := upsertProduct(tx, storeID, &products[i], syncedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Upsert writes a single product
func (r *GormProductRepository) Upsert(ctx context.Context, storeID uuid.UUID, product integration.CanonicalProduct, syncedAt time.Time) error {
	return upsertProduct(r.db.WithContext(ctx), storeID, &product, syncedAt)
}

func upsertProduct(db *gorm.DB, storeID uuid.UUID, p *integration.CanonicalProduct, syncedAt time.Time) error {
	if err := p.Validate(); err != nil {
		return &integration.UpsertFailure{ExternalID: p.ExternalID, Err: err}
	}
	model, err := models.NewProductModel(storeID, p, syncedAt)
	if err != nil {
		return &integration.UpsertFailure{ExternalID: p.ExternalID, Err: err}
	}
	if err := db.Clauses(productConflict).Create(model).Error; err != nil {
		return &integration.UpsertFailure{ExternalID: p.ExternalID, Err: err}
	}
	return nil
}

type storeProductCount struct {
	StoreID uuid.UUID
	Count   int64
}

// CountByStores counts products per store with one grouped query
func (r *GormProductRepository) CountByStores(ctx context.Context, storeIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(storeIDs))
	if len(storeIDs) == 0 {
		return counts, nil
	}

	var rows []storeProductCount
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("store_id, COUNT(*) AS count").
		Where("store_id IN ?", storeIDs).
		Group("store_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.StoreID] = row.Count
	}
	return counts, nil
}

// FindByExternalID finds one product of a store
func (r *GormProductRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*integration.CanonicalProduct, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &integration.NotFoundError{Resource: "product", ID: externalID}
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
