package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// ActivityLogModel is the persistence model for an append-only activity entry
type ActivityLogModel struct {
	ID          uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID                  `gorm:"type:uuid;not null;index:idx_activity_logs_owner_created,priority:1"`
	StoreID     *uuid.UUID                 `gorm:"type:uuid;index:idx_activity_logs_store_created,priority:1"`
	Action      integration.ActivityAction `gorm:"type:varchar(50);not null"`
	DetailsJSON string                     `gorm:"column:details;type:text;not null"`
	CreatedAt   time.Time                  `gorm:"not null;index:idx_activity_logs_owner_created,priority:2;index:idx_activity_logs_store_created,priority:2"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}

// ToDomain converts the persistence model to a domain entry
func (m *ActivityLogModel) ToDomain() *integration.ActivityLogEntry {
	entry := &integration.ActivityLogEntry{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		StoreID:   m.StoreID,
		Action:    m.Action,
		Details:   map[string]any{},
		CreatedAt: m.CreatedAt,
	}
	if m.DetailsJSON != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(m.DetailsJSON), &details); err == nil && details != nil {
			entry.Details = details
		}
	}
	return entry
}

// FromDomain populates the persistence model from a domain entry
func (m *ActivityLogModel) FromDomain(e *integration.ActivityLogEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}
	m.ID = e.ID
	m.OwnerID = e.OwnerID
	m.StoreID = e.StoreID
	m.Action = e.Action
	m.DetailsJSON = string(raw)
	m.CreatedAt = e.CreatedAt
	return nil
}
