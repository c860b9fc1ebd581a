package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/shared"
)

// Record holds the identity and audit columns shared by every table.
type Record struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (r Record) entity() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func recordOf(e shared.BaseEntity) Record {
	return Record{ID: e.ID, CreatedAt: e.CreatedAt.UTC(), UpdatedAt: e.UpdatedAt.UTC()}
}
