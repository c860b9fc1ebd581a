package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseEntity(t *testing.T) {
	var e BaseEntity
	assert.True(t, e.IsNew())

	berlin := time.FixedZone("CEST", 2*60*60)
	created := time.Date(2024, 6, 15, 12, 0, 0, 0, berlin)
	e = NewBaseEntityAt(created)
	assert.False(t, e.IsNew())
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
	assert.True(t, e.CreatedAt.Equal(created))
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)

	e.Touch(created.Add(time.Hour))
	assert.Equal(t, 11, e.UpdatedAt.Hour())
	assert.Equal(t, time.UTC, e.UpdatedAt.Location())
}
