package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// StoreModel is the persistence model for the Store aggregate
type StoreModel struct {
	BaseModel
	OwnerID            uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_stores_natural_key,priority:1"`
	Platform           integration.PlatformCode `gorm:"type:varchar(50);not null;uniqueIndex:idx_stores_natural_key,priority:2"`
	ExternalStoreID    string                   `gorm:"type:varchar(255);not null;uniqueIndex:idx_stores_natural_key,priority:3"`
	StoreName          string                   `gorm:"type:varchar(255);not null;default:''"`
	StoreURL           string                   `gorm:"type:varchar(2048);not null;default:''"`
	CredentialEnvelope string                   `gorm:"type:text;not null"`
	IsActive           bool                     `gorm:"not null;default:true"`
	SyncStatus         integration.SyncStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	SyncStartedAt      *time.Time
	LastSyncedAt       *time.Time `gorm:"index"`
	ConnectedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *integration.Store {
	return &integration.Store{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		Platform:           m.Platform,
		ExternalStoreID:    m.ExternalStoreID,
		StoreName:          m.StoreName,
		StoreURL:           m.StoreURL,
		CredentialEnvelope: []byte(m.CredentialEnvelope),
		IsActive:           m.IsActive,
		SyncStatus:         m.SyncStatus,
		SyncStartedAt:      m.SyncStartedAt,
		LastSyncedAt:       m.LastSyncedAt,
		ConnectedAt:        m.ConnectedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Store
func (m *StoreModel) FromDomain(s *integration.Store) {
	m.ID = s.ID
	m.OwnerID = s.OwnerID
	m.Platform = s.Platform
	m.ExternalStoreID = s.ExternalStoreID
	m.StoreName = s.StoreName
	m.StoreURL = s.StoreURL
	m.CredentialEnvelope = string(s.CredentialEnvelope)
	m.IsActive = s.IsActive
	m.SyncStatus = s.SyncStatus
	m.SyncStartedAt = s.SyncStartedAt
	m.LastSyncedAt = s.LastSyncedAt
	m.ConnectedAt = s.ConnectedAt
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// StoreModelFromDomain creates a new persistence model from a domain Store
func StoreModelFromDomain(s *integration.Store) *StoreModel {
	m := &StoreModel{}
	m.FromDomain(s)
	return m
}
