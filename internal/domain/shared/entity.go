package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds the identity and audit timestamps shared by stored records.
// Timestamps are always UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntityAt creates an entity with a fresh ID first stored at now
func NewBaseEntityAt(now time.Time) BaseEntity {
	now = now.UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records a modification at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}

// IsNew reports whether the entity has not been assigned an ID yet
func (e *BaseEntity) IsNew() bool {
	return e.ID == uuid.Nil
}
