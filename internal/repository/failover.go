package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"fsaeinventory/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverConfirmationRepository prefers the primary repository and switches
// to the fallback while the primary is failing.
type FailoverConfirmationRepository struct {
	primary  domain.ConfirmationRepository
	fallback domain.ConfirmationRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverConfirmationRepository(primary, fallback domain.ConfirmationRepository, logger *zerolog.Logger) *FailoverConfirmationRepository {
	return &FailoverConfirmationRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the primary should be tried, allowing one probe
// per recoveryInterval while it is marked down.
func (r *FailoverConfirmationRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverConfirmationRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary confirmation repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverConfirmationRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary confirmation repository recovered")
	}
}

func (r *FailoverConfirmationRepository) Put(ctx context.Context, pending *domain.PendingDeletion, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Put(ctx, pending, ttl)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Put(ctx, pending, ttl)
}

func (r *FailoverConfirmationRepository) Get(ctx context.Context, token string) (*domain.PendingDeletion, error) {
	if r.usePrimary() {
		pending, err := r.primary.Get(ctx, token)
		if err == nil {
			r.markUp()
			if pending != nil {
				return pending, nil
			}
			// issued while the primary was down
			return r.fallback.Get(ctx, token)
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, token)
}

func (r *FailoverConfirmationRepository) Delete(ctx context.Context, token string) error {
	_ = r.fallback.Delete(ctx, token)
	if r.usePrimary() {
		err := r.primary.Delete(ctx, token)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}
