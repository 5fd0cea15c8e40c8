package vectorindex

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is a linear-scan index over in-process vectors, partitioned by
// category. Suitable for small item counts and tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]map[string]Record // category -> identity key -> record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		records: make(map[string]map[string]Record),
	}
}

func (idx *MemoryIndex) Upsert(ctx context.Context, rec Record) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byKey, exists := idx.records[rec.Category]
	if !exists {
		byKey = make(map[string]Record)
		idx.records[rec.Category] = byKey
	}
	byKey[rec.IdentityKey] = rec
	return nil
}

func (idx *MemoryIndex) Search(ctx context.Context, category string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []Match
	for key, rec := range idx.records[category] {
		matches = append(matches, Match{
			IdentityKey: key,
			Score:       Cosine(vector, rec.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (idx *MemoryIndex) Delete(ctx context.Context, identityKey string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, byKey := range idx.records {
		delete(byKey, identityKey)
	}
	return nil
}

func (idx *MemoryIndex) Close() error {
	return nil
}
