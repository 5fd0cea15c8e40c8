package storage

import (
	"context"
	"errors"

	"github.com/xaenox/second-brain/internal/models"
)

var (
	// ErrNotFound is returned when no item exists for an identity key.
	ErrNotFound = errors.New("item not found")

	// ErrStorageFailure is returned when an item write does not succeed.
	ErrStorageFailure = errors.New("storage failure")
)

// Repository is category-partitioned CRUD over item records.
//
// Create assigns the identity key and refreshes the vector index projection
// so future similarity searches see the new item. Update touches only the
// mutable fields and never re-indexes; name and embedding are immutable after
// creation.
type Repository interface {
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, identityKey string, update models.ItemUpdate) error
	Get(ctx context.Context, identityKey string) (*models.Item, error)
	// List returns items in a category, optionally filtered by status
	// (empty status means all), newest first.
	List(ctx context.Context, category models.Category, status models.Status) ([]*models.Item, error)
	Close() error
}
