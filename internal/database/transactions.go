package database

import (
	"context"
	"fmt"
	"time"

	"fsaeinventory/internal/events"
	"fsaeinventory/internal/models"

	"github.com/google/uuid"
)

var eventTransactionTypes = map[string]string{
	events.EventItemAdded:     models.TxAdd,
	events.EventItemWithdrawn: models.TxWithdraw,
	events.EventItemReturned:  models.TxReturn,
	events.EventItemDeleted:   models.TxDelete,
}

// Record inserts one transaction, filling id and timestamp when empty.
func (db *DB) Record(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	query := `INSERT INTO transactions (id, item_id, item_name, type, quantity, balance, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.ItemID,
		tx.ItemName,
		tx.Type,
		tx.Quantity,
		tx.Balance,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// List returns the newest transactions first. limit <= 0 means all.
func (db *DB) List(ctx context.Context, limit int) ([]models.Transaction, error) {
	query := `SELECT id, item_id, item_name, type, quantity, balance, created_at
              FROM transactions ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.ItemID, &tx.ItemName, &tx.Type, &tx.Quantity, &tx.Balance, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// HandleEvent records an inventory event; it is registered on the event bus.
func (db *DB) HandleEvent(event *events.Event) error {
	txType, ok := eventTransactionTypes[event.Type]
	if !ok {
		return nil
	}

	var payload events.ItemEventPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}

	at := payload.At
	if at.IsZero() {
		at = event.CreatedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.Record(ctx, &models.Transaction{
		ItemID:    payload.ItemID,
		ItemName:  payload.ItemName,
		Type:      txType,
		Quantity:  payload.Delta,
		Balance:   payload.Quantity,
		CreatedAt: at,
	})
}
