package domain

import (
	"context"
	"time"

	"fsaeinventory/internal/models"
)

// InventoryStore persists the whole inventory snapshot.
type InventoryStore interface {
	LoadInventory(ctx context.Context) ([]models.Item, error)
	SaveInventory(ctx context.Context, items []models.Item) error
}

// TransactionSource is implemented by stores that also keep a movement log.
type TransactionSource interface {
	LoadTransactions(ctx context.Context) ([]models.Transaction, error)
}

// PendingDeletion is an issued but not yet confirmed delete request.
type PendingDeletion struct {
	Token     string    `json:"token"`
	ItemID    int64     `json:"itemId"`
	ItemName  string    `json:"itemName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ConfirmationRepository keeps pending deletions until they are confirmed,
// cancelled or expire. Get returns nil, nil for unknown tokens.
type ConfirmationRepository interface {
	Put(ctx context.Context, pending *PendingDeletion, ttl time.Duration) error
	Get(ctx context.Context, token string) (*PendingDeletion, error)
	Delete(ctx context.Context, token string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Journal records stock movements locally.
type Journal interface {
	Record(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, limit int) ([]models.Transaction, error)
}
