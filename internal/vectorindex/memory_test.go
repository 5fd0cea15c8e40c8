package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(key, category string, vec []float32) Record {
	return Record{IdentityKey: key, Vector: vec, Category: category, Status: "open"}
}

func TestMemoryIndexSearchOrdersByScore(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, record("projects#far", "Projects", []float32{0, 1, 0})))
	require.NoError(t, idx.Upsert(ctx, record("projects#near", "Projects", []float32{1, 0.1, 0})))
	require.NoError(t, idx.Upsert(ctx, record("projects#exact", "Projects", []float32{1, 0, 0})))

	matches, err := idx.Search(ctx, "Projects", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "projects#exact", matches[0].IdentityKey)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "projects#near", matches[1].IdentityKey)
	assert.Equal(t, "projects#far", matches[2].IdentityKey)
	assert.Greater(t, matches[1].Score, matches[2].Score)
}

func TestMemoryIndexSearchIsCategoryScoped(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	vec := []float32{1, 0, 0}

	require.NoError(t, idx.Upsert(ctx, record("people#alex", "People", vec)))

	// An identical vector in another category is invisible.
	matches, err := idx.Search(ctx, "Projects", vec, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = idx.Search(ctx, "People", vec, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "people#alex", matches[0].IdentityKey)
}

func TestMemoryIndexSearchHonorsTopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	vectors := [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0}, {0, 1, 0},
	}
	for i, vec := range vectors {
		require.NoError(t, idx.Upsert(ctx, record(string(rune('a'+i)), "Ideas", vec)))
	}

	matches, err := idx.Search(ctx, "Ideas", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].IdentityKey)
}

func TestMemoryIndexUpsertReplaces(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, record("admin#tax", "Admin", []float32{1, 0})))
	require.NoError(t, idx.Upsert(ctx, record("admin#tax", "Admin", []float32{0, 1})))

	matches, err := idx.Search(ctx, "Admin", []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestMemoryIndexDelete(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, record("ideas#x", "Ideas", []float32{1, 0})))
	require.NoError(t, idx.Delete(ctx, "ideas#x"))

	matches, err := idx.Search(ctx, "Ideas", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.0, 0}
	decoded, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
