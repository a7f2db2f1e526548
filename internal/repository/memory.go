package repository

import (
	"context"
	"sync"
	"time"

	"fsaeinventory/internal/domain"
)

type memoryEntry struct {
	pending   domain.PendingDeletion
	expiresAt time.Time
}

// MemoryConfirmationRepository keeps pending deletions in process memory.
type MemoryConfirmationRepository struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemoryConfirmationRepository() *MemoryConfirmationRepository {
	return &MemoryConfirmationRepository{now: time.Now}
}

func (r *MemoryConfirmationRepository) Put(ctx context.Context, pending *domain.PendingDeletion, ttl time.Duration) error {
	r.entries.Store(pending.Token, &memoryEntry{
		pending:   *pending,
		expiresAt: r.now().Add(ttl),
	})
	return nil
}

func (r *MemoryConfirmationRepository) Get(ctx context.Context, token string) (*domain.PendingDeletion, error) {
	val, ok := r.entries.Load(token)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.now().After(entry.expiresAt) {
		r.entries.Delete(token)
		return nil, nil
	}
	pending := entry.pending
	return &pending, nil
}

func (r *MemoryConfirmationRepository) Delete(ctx context.Context, token string) error {
	r.entries.Delete(token)
	return nil
}
