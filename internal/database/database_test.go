package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fsaeinventory/internal/events"
	"fsaeinventory/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "journal.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	db, err := NewDB(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestNewDB_InMemory(t *testing.T) {
	db, err := NewDB(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Record(context.Background(), &models.Transaction{ItemID: 1, ItemName: "Bolt", Type: models.TxAdd}))
	txs, err := db.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestDB_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	first := &models.Transaction{ItemID: 1, ItemName: "Bolt", Type: models.TxAdd, Quantity: 10, Balance: 10, CreatedAt: base}
	second := &models.Transaction{ItemID: 1, ItemName: "Bolt", Type: models.TxWithdraw, Quantity: 4, Balance: 6, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, db.Record(ctx, first))
	require.NoError(t, db.Record(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	txs, err := db.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxWithdraw, txs[0].Type, "newest first")
	assert.Equal(t, int64(6), txs[0].Balance)
	assert.True(t, txs[1].CreatedAt.Equal(base))

	limited, err := db.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDB_RecordDuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx := &models.Transaction{ID: "same", ItemID: 1, ItemName: "Bolt", Type: models.TxAdd}
	require.NoError(t, db.Record(ctx, tx))
	assert.Error(t, db.Record(ctx, &models.Transaction{ID: "same", ItemID: 2, ItemName: "Nut", Type: models.TxAdd}))
}

func TestDB_HandleEvent(t *testing.T) {
	db := setupTestDB(t)
	bus := events.NewEventBus()
	bus.SubscribeAll(db.HandleEvent)

	require.NoError(t, bus.PublishJSON(events.EventItemReturned, events.ItemEventPayload{
		ItemID: 2, ItemName: "Brake Pad", Delta: 3, Quantity: 7, Status: "In Stock",
	}))
	require.NoError(t, bus.PublishJSON("unrelated", map[string]string{"a": "b"}))

	txs, err := db.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxReturn, txs[0].Type)
	assert.Equal(t, int64(3), txs[0].Quantity)
	assert.Equal(t, int64(7), txs[0].Balance)
	assert.Equal(t, "Brake Pad", txs[0].ItemName)
	assert.False(t, txs[0].CreatedAt.IsZero())
}
