package storage

import (
	"context"
	"testing"

	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage(t *testing.T) {
	s := NewMemoryObjectStorage()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		data := []byte("png")
		require.NoError(t, s.PutObject(ctx, "evidence/a.png", data, "image/png"))
		data[0] = 'X'

		got, err := s.GetObject(ctx, "evidence/a.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), got)
		assert.Equal(t, "image/png", s.ContentType("evidence/a.png"))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("exists and delete", func(t *testing.T) {
		exists, err := s.ObjectExists(ctx, "evidence/a.png")
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, s.DeleteObject(ctx, "evidence/a.png"))
		require.NoError(t, s.DeleteObject(ctx, "evidence/a.png"))

		exists, err = s.ObjectExists(ctx, "evidence/a.png")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := s.GetObject(ctx, "evidence/none.pdf")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, s.PutObject(ctx, "", nil, ""))
		_, err := s.GetObject(ctx, "")
		assert.Error(t, err)
		assert.Error(t, s.DeleteObject(ctx, ""))
		_, err = s.ObjectExists(ctx, "")
		assert.Error(t, err)
	})
}
