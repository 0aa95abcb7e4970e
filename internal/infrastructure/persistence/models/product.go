package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for a canonical product
type ProductModel struct {
	BaseModel
	StoreID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_store_external,priority:1"`
	ExternalID        string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_store_external,priority:2"`
	SKU               string          `gorm:"column:sku;type:varchar(255);not null;default:''"`
	Title             string          `gorm:"type:varchar(1000);not null;default:''"`
	Description       string          `gorm:"type:text;not null;default:''"`
	Price             decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	InventoryQuantity int64           `gorm:"not null;default:0"`
	Status            string          `gorm:"type:varchar(50);not null;default:''"`
	TagsJSON          string          `gorm:"column:tags;type:text;not null"`
	ImagesJSON        string          `gorm:"column:images;type:text;not null"`
	PlatformDataJSON  string          `gorm:"column:platform_data;type:text;not null"`
	LastSyncedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductUpsertColumns are overwritten when (store_id, external_id) already exists
var ProductUpsertColumns = []string{
	"sku", "title", "description", "price", "inventory_quantity", "status",
	"tags", "images", "platform_data", "last_synced_at", "updated_at",
}

// ToDomain converts the persistence model to a canonical product. Undecodable
// JSON columns fall back to their empty values.
func (m *ProductModel) ToDomain() *integration.CanonicalProduct {
	p := &integration.CanonicalProduct{
		StoreID:           m.StoreID,
		ExternalID:        m.ExternalID,
		SKU:               m.SKU,
		Title:             m.Title,
		Description:       m.Description,
		Price:             m.Price,
		InventoryQuantity: m.InventoryQuantity,
		Status:            m.Status,
	}
	if m.TagsJSON != "" {
		_ = json.Unmarshal([]byte(m.TagsJSON), &p.Tags)
	}
	if m.ImagesJSON != "" {
		_ = json.Unmarshal([]byte(m.ImagesJSON), &p.Images)
	}
	if m.PlatformDataJSON != "" {
		_ = json.Unmarshal([]byte(m.PlatformDataJSON), &p.PlatformData)
	}
	p.ApplyDefaults()
	return p
}

// FromDomain populates the persistence model from a canonical product
func (m *ProductModel) FromDomain(p *integration.CanonicalProduct) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	images := p.Images
	if images == nil {
		images = []integration.ProductImage{}
	}
	platformData := p.PlatformData
	if platformData == nil {
		platformData = map[string]any{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	platformJSON, err := json.Marshal(platformData)
	if err != nil {
		return fmt.Errorf("encode platform_data: %w", err)
	}

	m.StoreID = p.StoreID
	m.ExternalID = p.ExternalID
	m.SKU = p.SKU
	m.Title = p.Title
	m.Description = p.Description
	m.Price = p.Price
	m.InventoryQuantity = p.InventoryQuantity
	m.Status = p.Status
	m.TagsJSON = string(tagsJSON)
	m.ImagesJSON = string(imagesJSON)
	m.PlatformDataJSON = string(platformJSON)
	return nil
}

// NewProductModel builds a row for storeID stamped with syncedAt. The row id
// is only used when the product is inserted for the first time.
func NewProductModel(storeID uuid.UUID, p *integration.CanonicalProduct, syncedAt time.Time) (*ProductModel, error) {
	m := &ProductModel{}
	if err := m.FromDomain(p); err != nil {
		return nil, err
	}
	m.ID = uuid.New()
	m.StoreID = storeID
	m.LastSyncedAt = syncedAt
	m.CreatedAt = syncedAt
	m.UpdatedAt = syncedAt
	return m, nil
}
