package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fsaeinventory/internal/domain"
	"fsaeinventory/internal/events"
	"fsaeinventory/internal/export"
	"fsaeinventory/internal/metrics"
	"fsaeinventory/internal/models"
	"fsaeinventory/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Источник текущего списка
const (
	SourceRemote = "remote"
	SourceSample = "sample"
	SourceEmpty  = "empty"
)

// LoadResult describes where the current list came from after Load.
type LoadResult struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Err    error  `json:"-"`
}

// MutationResult is returned by every accepted mutation. The change is
// applied locally even when SaveErr is set.
type MutationResult struct {
	Item    models.Item
	SaveErr error
}

func (r MutationResult) Saved() bool {
	return r.SaveErr == nil
}

type Options struct {
	SampleItems     []models.Item
	SampleOnFailure bool
	ConfirmTTL      time.Duration
	JournalLimit    int
}

// InventoryService owns the in-memory inventory list. Every accepted change
// is applied locally and then the whole list is written to the store.
type InventoryService struct {
	store         domain.InventoryStore
	confirmations domain.ConfirmationRepository
	eventBus      domain.EventPublisher
	journal       domain.Journal
	opts          Options
	logger        *zerolog.Logger

	mu     sync.RWMutex
	items  []models.Item
	source string

	// saveMu serializes writes; each write sends the latest list.
	saveMu  sync.Mutex
	loading atomic.Bool
	now     func() time.Time
}

// NewInventoryService builds the view-model. A nil store runs the service on
// sample data without persistence. A nil confirmation repository falls back
// to process memory.
func NewInventoryService(
	store domain.InventoryStore,
	confirmations domain.ConfirmationRepository,
	eventBus domain.EventPublisher,
	journal domain.Journal,
	opts Options,
	logger *zerolog.Logger,
) *InventoryService {
	if confirmations == nil {
		confirmations = repository.NewMemoryConfirmationRepository()
	}
	if opts.SampleItems == nil {
		opts.SampleItems = models.SampleItems()
	}
	if opts.ConfirmTTL <= 0 {
		opts.ConfirmTTL = models.DefaultConfirmTTL * time.Second
	}
	if opts.JournalLimit <= 0 {
		opts.JournalLimit = 100
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &InventoryService{
		store:         store,
		confirmations: confirmations,
		eventBus:      eventBus,
		journal:       journal,
		opts:          opts,
		logger:        logger,
		source:        SourceEmpty,
		now:           time.Now,
	}
}

// Load replaces the list with the store contents. On store failure the list
// becomes the sample data when SampleOnFailure is set and is left as it was
// otherwise; the store error is returned in both cases.
func (s *InventoryService) Load(ctx context.Context) (LoadResult, error) {
	s.loading.Store(true)
	defer s.loading.Store(false)

	if s.store == nil {
		n := s.replace(s.sample(), SourceSample)
		metrics.IncLoad(SourceSample)
		return LoadResult{Source: SourceSample, Count: n}, nil
	}

	items, err := s.store.LoadInventory(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		s.logger.Error().Err(err).Msg("Failed to load inventory")

		if s.opts.SampleOnFailure {
			n := s.replace(s.sample(), SourceSample)
			metrics.IncLoad(SourceSample)
			return LoadResult{Source: SourceSample, Count: n, Err: err}, err
		}

		s.mu.RLock()
		res := LoadResult{Source: s.source, Count: len(s.items), Err: err}
		s.mu.RUnlock()
		return res, err
	}

	n := s.replace(normalize(items, s.logger), SourceRemote)
	metrics.IncLoad(SourceRemote)
	s.logger.Info().Int("count", n).Msg("Inventory loaded")
	return LoadResult{Source: SourceRemote, Count: n}, nil
}

func (s *InventoryService) replace(items []models.Item, source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.source = source
	return len(items)
}

func (s *InventoryService) sample() []models.Item {
	items := make([]models.Item, len(s.opts.SampleItems))
	copy(items, s.opts.SampleItems)
	for i := range items {
		items[i].Refresh()
	}
	return items
}

// normalize recomputes statuses, clamps negative counts to zero and
// reassigns duplicate or missing ids so that ids stay unique.
func normalize(items []models.Item, logger *zerolog.Logger) []models.Item {
	out := make([]models.Item, 0, len(items))
	seen := make(map[int64]bool, len(items))
	next := models.NextID(items)
	for _, item := range items {
		if item.ID <= 0 || seen[item.ID] {
			logger.Warn().Int64("id", item.ID).Int64("new_id", next).Str("name", item.Name).
				Msg("Duplicate item id reassigned")
			item.ID = next
			next++
		}
		seen[item.ID] = true
		if item.Quantity < 0 || item.MinStock < 0 {
			logger.Warn().Int64("id", item.ID).Int64("quantity", item.Quantity).Int64("min_stock", item.MinStock).
				Msg("Negative stock values clamped to zero")
			item.Quantity = max(item.Quantity, 0)
			item.MinStock = max(item.MinStock, 0)
		}
		item.Refresh()
		out = append(out, item)
	}
	return out
}

// Loading reports whether a Load is in progress.
func (s *InventoryService) Loading() bool {
	return s.loading.Load()
}

func (s *InventoryService) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Items returns a copy of the full list in insertion order.
func (s *InventoryService) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *InventoryService) Item(id int64) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return models.Item{}, ErrItemNotFound
}

// Filter returns the items matching term, see the package-level Filter.
func (s *InventoryService) Filter(term string) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.items, term)
}

// indexOf must be called with mu held.
func (s *InventoryService) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *InventoryService) Add(ctx context.Context, draft models.Draft) (MutationResult, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return MutationResult{}, ErrEmptyName
	}
	if draft.Quantity < 0 || draft.MinStock < 0 {
		return MutationResult{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	item := draft.ToItem(models.NextID(s.items))
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.logger.Info().Int64("item_id", item.ID).Str("name", item.Name).Int64("quantity", item.Quantity).
		Msg("Item added")
	return s.commit(ctx, events.EventItemAdded, item, item.Quantity), nil
}

// Withdraw takes quantity units out of stock. Withdrawing more than is in
// stock is rejected as a whole.
func (s *InventoryService) Withdraw(ctx context.Context, id, quantity int64) (MutationResult, error) {
	if quantity <= 0 {
		return MutationResult{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return MutationResult{}, ErrItemNotFound
	}
	if quantity > s.items[i].Quantity {
		s.mu.Unlock()
		return MutationResult{}, fmt.Errorf("%w: requested %d, available %d",
			ErrInsufficientStock, quantity, s.items[i].Quantity)
	}
	s.items[i].Quantity -= quantity
	s.items[i].Refresh()
	item := s.items[i]
	s.mu.Unlock()

	s.logger.Info().Int64("item_id", id).Int64("quantity", quantity).Int64("balance", item.Quantity).
		Msg("Stock withdrawn")
	return s.commit(ctx, events.EventItemWithdrawn, item, -quantity), nil
}

// Return puts quantity units back. There is no upper bound.
func (s *InventoryService) Return(ctx context.Context, id, quantity int64) (MutationResult, error) {
	if quantity <= 0 {
		return MutationResult{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return MutationResult{}, ErrItemNotFound
	}
	if quantity > math.MaxInt64-s.items[i].Quantity {
		s.mu.Unlock()
		return MutationResult{}, fmt.Errorf("%w: stock of item %d would overflow", ErrInvalidQuantity, id)
	}
	s.items[i].Quantity += quantity
	s.items[i].Refresh()
	item := s.items[i]
	s.mu.Unlock()

	s.logger.Info().Int64("item_id", id).Int64("quantity", quantity).Int64("balance", item.Quantity).
		Msg("Stock returned")
	return s.commit(ctx, events.EventItemReturned, item, quantity), nil
}

// Delete removes the item once the caller has confirmed.
func (s *InventoryService) Delete(ctx context.Context, id int64, confirmed bool) (MutationResult, error) {
	if !confirmed {
		if _, err := s.Item(id); err != nil {
			return MutationResult{}, err
		}
		return MutationResult{}, ErrConfirmationRequired
	}
	return s.remove(ctx, id)
}

func (s *InventoryService) remove(ctx context.Context, id int64) (MutationResult, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return MutationResult{}, ErrItemNotFound
	}
	item := s.items[i]
	items := make([]models.Item, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	s.items = append(items, s.items[i+1:]...)
	s.mu.Unlock()

	s.logger.Info().Int64("item_id", id).Str("name", item.Name).Msg("Item deleted")
	return s.commit(ctx, events.EventItemDeleted, item, -item.Quantity), nil
}

// RequestDelete issues a confirmation token for deleting the item.
func (s *InventoryService) RequestDelete(ctx context.Context, id int64) (*domain.PendingDeletion, error) {
	item, err := s.Item(id)
	if err != nil {
		return nil, err
	}

	pending := &domain.PendingDeletion{
		Token:     uuid.NewString(),
		ItemID:    item.ID,
		ItemName:  item.Name,
		ExpiresAt: s.now().Add(s.opts.ConfirmTTL),
	}
	if err := s.confirmations.Put(ctx, pending, s.opts.ConfirmTTL); err != nil {
		return nil, fmt.Errorf("store delete confirmation: %w", err)
	}
	return pending, nil
}

// ConfirmDelete consumes the token and deletes the item it names.
func (s *InventoryService) ConfirmDelete(ctx context.Context, token string) (MutationResult, error) {
	pending, err := s.takePending(ctx, token)
	if err != nil {
		return MutationResult{}, err
	}
	return s.remove(ctx, pending.ItemID)
}

// CancelDelete drops the token without touching the list.
func (s *InventoryService) CancelDelete(ctx context.Context, token string) error {
	_, err := s.takePending(ctx, token)
	return err
}

func (s *InventoryService) takePending(ctx context.Context, token string) (*domain.PendingDeletion, error) {
	pending, err := s.confirmations.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get delete confirmation: %w", err)
	}
	if pending == nil {
		return nil, ErrConfirmationNotFound
	}
	if err := s.confirmations.Delete(ctx, token); err != nil {
		s.logger.Warn().Err(err).Str("token", token).Msg("Failed to drop delete confirmation")
	}
	return pending, nil
}

// commit persists the current list and announces the change.
func (s *InventoryService) commit(ctx context.Context, eventType string, item models.Item, delta int64) MutationResult {
	res := MutationResult{Item: item, SaveErr: s.persist(ctx)}
	s.publishEvent(eventType, events.ItemEventPayload{
		ItemID:   item.ID,
		ItemName: item.Name,
		Delta:    delta,
		Quantity: item.Quantity,
		Status:   string(item.Status),
		Saved:    res.Saved(),
		At:       s.now(),
	})
	return res
}

func (s *InventoryService) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.store.SaveInventory(ctx, s.Items()); err != nil {
		metrics.IncPersistFailure()
		s.logger.Error().Err(err).Msg("Failed to save inventory, keeping local changes")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

func (s *InventoryService) publishEvent(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish event")
	}
}

// Transactions returns the store's movement log when it keeps one and the
// local journal otherwise, or when the store read fails.
func (s *InventoryService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	if src, ok := s.store.(domain.TransactionSource); ok {
		txs, err := src.LoadTransactions(ctx)
		if err == nil {
			return txs, nil
		}
		if s.journal == nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		s.logger.Warn().Err(err).Msg("Remote transactions unavailable, using local journal")
	}

	if s.journal == nil {
		return []models.Transaction{}, nil
	}
	txs, err := s.journal.List(ctx, s.opts.JournalLimit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return txs, nil
}

// Export renders the items matching term.
func (s *InventoryService) Export(term string, format export.Format) (*export.Document, error) {
	items := s.Filter(term)
	if len(items) == 0 {
		return nil, ErrNothingToExport
	}
	doc, err := export.Render(format, items)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return doc, nil
}

// IsNotFound reports whether err means the item or token does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrConfirmationNotFound)
}
