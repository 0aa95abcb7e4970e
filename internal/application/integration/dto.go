package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// ConnectRequest links a platform store to the caller's account
type ConnectRequest struct {
	Platform    string            `json:"platform" binding:"required"`
	Credentials map[string]string `json:"credentials" binding:"required"`
}

// TestConnectionRequest probes a platform with credentials that are not stored
type TestConnectionRequest struct {
	Platform    string            `json:"platform" binding:"required"`
	Credentials map[string]string `json:"credentials" binding:"required"`
}

// UpdateProductRequest is the partial field set pushed to the platform.
// Omitted fields are left untouched.
type UpdateProductRequest struct {
	Tags   []string `json:"tags,omitempty"`
	Title  *string  `json:"title,omitempty"`
	Status *string  `json:"status,omitempty"`
}

func (r UpdateProductRequest) toDomain() integration.ProductUpdate {
	return integration.ProductUpdate{
		Tags:   r.Tags,
		Title:  r.Title,
		Status: r.Status,
	}
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ConnectionStatusConnected is the status reported by a successful Connect
const ConnectionStatusConnected = "connected"

// ConnectResponse is returned by Connect
type ConnectResponse struct {
	ID          uuid.UUID                `json:"id"`
	Platform    integration.PlatformCode `json:"platform"`
	StoreName   string                   `json:"store_name"`
	ConnectedAt time.Time                `json:"connected_at"`
	Status      string                   `json:"status"`
}

// StoreResponse is one entry of List
type StoreResponse struct {
	ID           uuid.UUID                `json:"id"`
	Platform     integration.PlatformCode `json:"platform"`
	StoreName    string                   `json:"store_name"`
	StoreURL     string                   `json:"store_url"`
	IsActive     bool                     `json:"is_active"`
	ConnectedAt  time.Time                `json:"connected_at"`
	LastSyncedAt *time.Time               `json:"last_synced_at,omitempty"`
	SyncStatus   integration.SyncStatus   `json:"sync_status"`
	ProductCount int64                    `json:"product_count"`
}

func toStoreResponse(s integration.StoreSummary) StoreResponse {
	return StoreResponse{
		ID:           s.ID,
		Platform:     s.Platform,
		StoreName:    s.StoreName,
		StoreURL:     s.StoreURL,
		IsActive:     s.IsActive,
		ConnectedAt:  s.ConnectedAt,
		LastSyncedAt: s.LastSyncedAt,
		SyncStatus:   s.SyncStatus,
		ProductCount: s.ProductCount,
	}
}

// TestConnectionResponse is the outcome of a probe
type TestConnectionResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	LatencyMs int64  `json:"latency_ms"`
}

// SyncResult summarises one completed sync pass
type SyncResult struct {
	StoreID        uuid.UUID              `json:"store_id"`
	Status         integration.SyncStatus `json:"status"`
	ProductsSynced int                    `json:"products_synced"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    time.Time              `json:"completed_at"`
}

// ProductImageResponse is one product image
type ProductImageResponse struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductResponse is a canonical product
type ProductResponse struct {
	ExternalID        string                 `json:"external_id"`
	SKU               string                 `json:"sku"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Price             decimal.Decimal        `json:"price"`
	InventoryQuantity int64                  `json:"inventory_quantity"`
	Status            string                 `json:"status"`
	Tags              []string               `json:"tags"`
	Images            []ProductImageResponse `json:"images"`
	PlatformData      map[string]any         `json:"platform_data"`
}

func toProductResponse(p *integration.CanonicalProduct) *ProductResponse {
	images := make([]ProductImageResponse, len(p.Images))
	for i, img := range p.Images {
		images[i] = ProductImageResponse{URL: img.URL, Alt: img.Alt}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ProductResponse{
		ExternalID:        p.ExternalID,
		SKU:               p.SKU,
		Title:             p.Title,
		Description:       p.Description,
		Price:             p.Price,
		InventoryQuantity: p.InventoryQuantity,
		Status:            p.Status,
		Tags:              tags,
		Images:            images,
		PlatformData:      p.PlatformData,
	}
}

// ActivityResponse is one activity log entry
type ActivityResponse struct {
	ID        uuid.UUID                  `json:"id"`
	StoreID   *uuid.UUID                 `json:"store_id,omitempty"`
	Action    integration.ActivityAction `json:"action"`
	Details   map[string]any             `json:"details"`
	CreatedAt time.Time                  `json:"created_at"`
}

func toActivityResponse(e integration.ActivityLogEntry) ActivityResponse {
	return ActivityResponse{
		ID:        e.ID,
		StoreID:   e.StoreID,
		Action:    e.Action,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}
