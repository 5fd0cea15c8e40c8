package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/second-brain/internal/models"
	"github.com/xaenox/second-brain/internal/vectorindex"
)

// MemoryRepository keeps items in process memory. Used for tests and local
// runs without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Item
	index vectorindex.Index
}

func NewMemoryRepository(index vectorindex.Index) *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]*models.Item),
		index: index,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, item *models.Item) error {
	r.mu.Lock()

	item.IdentityKey = models.BuildIdentityKey(item.Category, uuid.New().String()[:8])
	item.CreatedAt = time.Now().UTC()

	stored := *item
	r.items[item.IdentityKey] = &stored
	r.mu.Unlock()

	return r.index.Upsert(ctx, vectorindex.Record{
		IdentityKey: item.IdentityKey,
		Vector:      item.Embedding,
		Category:    string(item.Category),
		Name:        item.Name,
		Status:      string(item.Status),
	})
}

func (r *MemoryRepository) Update(ctx context.Context, identityKey string, update models.ItemUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, exists := r.items[identityKey]
	if !exists {
		return ErrNotFound
	}

	item.Status = update.Status
	item.NextAction = update.NextAction
	item.Notes = update.Notes
	item.Confidence = update.Confidence
	item.OriginalText = update.OriginalText
	updatedAt := update.UpdatedAt
	item.UpdatedAt = &updatedAt
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, identityKey string) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[identityKey]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *item
	return &copied, nil
}

func (r *MemoryRepository) List(ctx context.Context, category models.Category, status models.Status) ([]*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*models.Item
	for _, item := range r.items {
		if item.Category != category {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
