package repository

import (
	"context"
	"testing"
	"time"

	"fsaeinventory/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConfirmationRepository(t *testing.T) {
	repo := NewMemoryConfirmationRepository()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	pending := &domain.PendingDeletion{Token: "tok", ItemID: 3, ItemName: "Bolt"}

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, pending, time.Minute))
		got, err := repo.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, pending, got)
	})

	t.Run("Unknown", func(t *testing.T) {
		got, err := repo.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expired", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		got, err := repo.Get(ctx, "tok")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, pending, time.Minute))
		require.NoError(t, repo.Delete(ctx, "tok"))
		got, _ := repo.Get(ctx, "tok")
		assert.Nil(t, got)
	})
}
