// Package vectorindex provides category-scoped nearest-neighbor search over
// item embeddings. Backends range from an in-process linear scan to a
// sqlite-vec ANN table; the dedup engine is agnostic to which one is wired.
package vectorindex

import (
	"context"
	"errors"
)

// ErrQueryFailed is returned when a similarity query cannot be answered.
// Callers must not treat it as "no match found"; doing so would cause
// uncontrolled duplication.
var ErrQueryFailed = errors.New("similarity query failed")

// Record is the denormalized projection of an item kept in the index.
type Record struct {
	IdentityKey string
	Vector      []float32
	Category    string
	Name        string
	Status      string
}

// Match is one search hit with its cosine similarity score.
type Match struct {
	IdentityKey string
	Score       float64
}

// Index answers nearest-neighbor queries over indexed item vectors. Search is
// always restricted to a single category and returns matches in descending
// score order.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Search(ctx context.Context, category string, vector []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, identityKey string) error
	Close() error
}
