package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All returns every model, in dependency order, for AutoMigrate on sqlite.
// Postgres schemas come from the embedded SQL migrations.
func All() []any {
	return []any{
		&StoreModel{},
		&ProductModel{},
		&ActivityLogModel{},
	}
}
