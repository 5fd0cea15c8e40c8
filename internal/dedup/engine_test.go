package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/embedding"
	"github.com/xaenox/second-brain/internal/event"
	"github.com/xaenox/second-brain/internal/models"
	"github.com/xaenox/second-brain/internal/storage"
	"github.com/xaenox/second-brain/internal/vectorindex"
)

const testDims = 8

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedder" }
func (f *fakeEmbedder) Close() error  { return nil }

// fakeIndex returns canned matches so tests control scores precisely.
type fakeIndex struct {
	matches     []vectorindex.Match
	err         error
	searchCalls int
	upserts     []vectorindex.Record
}

func (f *fakeIndex) Upsert(ctx context.Context, rec vectorindex.Record) error {
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, category string, vector []float32, topK int) ([]vectorindex.Match, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeIndex) Delete(ctx context.Context, identityKey string) error { return nil }
func (f *fakeIndex) Close() error                                         { return nil }

func newTestEngine(t *testing.T, emb embedding.Embedder, idx vectorindex.Index) (*Engine, storage.Repository, *event.MemoryLog) {
	t.Helper()
	items := storage.NewMemoryRepository(idx)
	events := event.NewMemoryLog()
	engine := NewEngine(emb, idx, items, events, Config{Dimensions: testDims}, zap.NewNop())
	return engine, items, events
}

func testSource(id string) Source {
	return Source{
		Source:        "telegram",
		SourceID:      id,
		RawText:       "raw text for " + id,
		SourceEventSK: fmt.Sprintf("2024-05-01T10:00:00Z#%s", id),
		ClassifiedBy:  "gpt-4o-mini",
	}
}

func TestProcessCreatesItemWhenNoCandidates(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{}
	engine, items, _ := newTestEngine(t, emb, idx)

	cls := &models.Classification{
		Category:   "Projects",
		Name:       "Website redesign",
		Confidence: 92,
	}

	result, err := engine.Process(context.Background(), cls, testSource("m1"))
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, 0.0, result.Similarity)
	assert.Equal(t, models.StatusOpen, result.Status)
	assert.Equal(t, models.CategoryProjects, result.Category)

	item, err := items.Get(context.Background(), result.IdentityKey)
	require.NoError(t, err)
	assert.Equal(t, "Website redesign", item.Name)
	assert.Equal(t, models.StatusOpen, item.Status)
	assert.InDelta(t, 0.92, item.Confidence, 1e-9)
	assert.Equal(t, emb.vector, item.Embedding)
	assert.True(t, strings.HasPrefix(item.IdentityKey, "projects#"))

	// The new vector must be indexed so future matches see the item.
	require.Len(t, idx.upserts, 1)
	assert.Equal(t, result.IdentityKey, idx.upserts[0].IdentityKey)
	assert.Equal(t, "Projects", idx.upserts[0].Category)
}

func TestProcessUpdatesExistingItemAboveThreshold(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{}
	engine, items, _ := newTestEngine(t, emb, idx)
	ctx := context.Background()

	first, err := engine.Process(ctx, &models.Classification{
		Category:   "Projects",
		Name:       "Website redesign",
		Confidence: 92,
	}, testSource("m1"))
	require.NoError(t, err)

	idx.matches = []vectorindex.Match{{IdentityKey: first.IdentityKey, Score: 0.91}}

	second, err := engine.Process(ctx, &models.Classification{
		Category:   "Projects",
		Name:       "Redesign the website",
		Status:     "done",
		NextAction: "announce launch",
		Confidence: 88,
	}, testSource("m2"))
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, second.Action)
	assert.Equal(t, 0.91, second.Similarity)
	assert.Equal(t, first.IdentityKey, second.IdentityKey)
	assert.Equal(t, models.StatusCompleted, second.Status)

	item, err := items.Get(ctx, first.IdentityKey)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, item.Status)
	assert.Equal(t, "announce launch", item.NextAction)
	assert.Equal(t, "raw text for m2", item.OriginalText)
	require.NotNil(t, item.UpdatedAt)

	// Name and embedding are immutable on update; the match was made against
	// the stored embedding, nothing gets re-embedded or re-indexed.
	assert.Equal(t, "Website redesign", item.Name)
	assert.Equal(t, emb.vector, item.Embedding)
	assert.Len(t, idx.upserts, 1)
}

func TestProcessThresholdIsInclusive(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Action
	}{
		{"exactly at threshold matches", 0.85, ActionUpdated},
		{"just below threshold creates", 0.8499, ActionCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &fakeEmbedder{vector: unitVector(0)}
			idx := &fakeIndex{}
			engine, _, _ := newTestEngine(t, emb, idx)
			ctx := context.Background()

			first, err := engine.Process(ctx, &models.Classification{
				Category:   "Ideas",
				Name:       "Garden automation",
				Confidence: 80,
			}, testSource("m1"))
			require.NoError(t, err)

			idx.matches = []vectorindex.Match{{IdentityKey: first.IdentityKey, Score: tt.score}}

			second, err := engine.Process(ctx, &models.Classification{
				Category:   "Ideas",
				Name:       "Automating the garden",
				Confidence: 75,
			}, testSource("m2"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, second.Action)
		})
	}
}

func TestProcessNamelessItemsAlwaysCreate(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{}
	engine, items, _ := newTestEngine(t, emb, idx)
	ctx := context.Background()

	first, err := engine.Process(ctx, &models.Classification{
		Category:   "Admin",
		Confidence: 70,
	}, testSource("m1"))
	require.NoError(t, err)

	second, err := engine.Process(ctx, &models.Classification{
		Category:   "Admin",
		Name:       "   ",
		Confidence: 70,
	}, testSource("m2"))
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, first.Action)
	assert.Equal(t, ActionCreated, second.Action)
	assert.NotEqual(t, first.IdentityKey, second.IdentityKey)
	assert.Zero(t, first.Similarity)
	assert.Zero(t, second.Similarity)

	// Matching is skipped entirely: no embedding call, no index search.
	assert.Zero(t, emb.calls)
	assert.Zero(t, idx.searchCalls)

	// Nameless items carry the zero vector, which never matches anything.
	item, err := items.Get(ctx, first.IdentityKey)
	require.NoError(t, err)
	assert.Equal(t, embedding.ZeroVector(testDims), item.Embedding)
	assert.Equal(t, 0.0, vectorindex.Cosine(item.Embedding, item.Embedding))
}

func TestProcessCategoryIsolation(t *testing.T) {
	// A real linear index: identical embeddings in different categories must
	// never match across the category boundary.
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := vectorindex.NewMemoryIndex()
	engine, _, _ := newTestEngine(t, emb, idx)
	ctx := context.Background()

	first, err := engine.Process(ctx, &models.Classification{
		Category:   "People",
		Name:       "Alex",
		Confidence: 90,
	}, testSource("m1"))
	require.NoError(t, err)
	require.Equal(t, ActionCreated, first.Action)

	second, err := engine.Process(ctx, &models.Classification{
		Category:   "Projects",
		Name:       "Alex",
		Confidence: 90,
	}, testSource("m2"))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, second.Action)

	// Same name in the same category does match.
	third, err := engine.Process(ctx, &models.Classification{
		Category:   "People",
		Name:       "Alex",
		Confidence: 90,
	}, testSource("m3"))
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, third.Action)
	assert.Equal(t, first.IdentityKey, third.IdentityKey)
	assert.InDelta(t, 1.0, third.Similarity, 1e-6)
}

func TestProcessIndexFailureAborts(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{err: vectorindex.ErrQueryFailed}
	engine, items, _ := newTestEngine(t, emb, idx)

	_, err := engine.Process(context.Background(), &models.Classification{
		Category:   "Projects",
		Name:       "Website redesign",
		Confidence: 92,
	}, testSource("m1"))
	require.ErrorIs(t, err, vectorindex.ErrQueryFailed)

	// An index outage must never degrade to "no match found": nothing
	// was created.
	listed, err := items.List(context.Background(), models.CategoryProjects, "")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestProcessEmbeddingFailureAborts(t *testing.T) {
	emb := &fakeEmbedder{err: embedding.ErrUnavailable}
	idx := &fakeIndex{}
	engine, items, _ := newTestEngine(t, emb, idx)

	_, err := engine.Process(context.Background(), &models.Classification{
		Category:   "Ideas",
		Name:       "Garden automation",
		Confidence: 80,
	}, testSource("m1"))
	require.ErrorIs(t, err, embedding.ErrUnavailable)
	assert.Zero(t, idx.searchCalls)

	listed, err := items.List(context.Background(), models.CategoryIdeas, "")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestProcessRejectsInvalidCategory(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	engine, _, _ := newTestEngine(t, emb, &fakeIndex{})

	_, err := engine.Process(context.Background(), &models.Classification{
		Category:   "Chores",
		Name:       "something",
		Confidence: 90,
	}, testSource("m1"))
	require.ErrorIs(t, err, models.ErrInvalidClassification)
}

func TestProcessAppendsEvents(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{}
	engine, _, events := newTestEngine(t, emb, idx)
	ctx := context.Background()

	first, err := engine.Process(ctx, &models.Classification{
		Category:   "Projects",
		Name:       "Website redesign",
		Confidence: 92,
	}, testSource("m1"))
	require.NoError(t, err)

	records, err := events.ListBySource(ctx, "telegram")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byType := make(map[string]event.Record)
	for _, rec := range records {
		byType[rec.EventType] = rec
	}

	classified, ok := byType["MessageClassified"]
	require.True(t, ok)
	assert.Equal(t, "EVENT#telegram", classified.PK)
	assert.Equal(t, "Projects", classified.Attributes["classification"])
	assert.Equal(t, first.IdentityKey, classified.Attributes["item_pk"])
	assert.InDelta(t, 0.92, classified.Attributes["confidence_score"].(float64), 1e-9)

	similar, ok := byType["MessageSimilar"]
	require.True(t, ok)
	assert.Equal(t, false, similar.Attributes["link_created"])
	assert.Equal(t, DefaultThreshold, similar.Attributes["threshold_used"])
	assert.Equal(t, "fake-embedder", similar.Attributes["search_model"])

	// A matching second message records the link.
	idx.matches = []vectorindex.Match{{IdentityKey: first.IdentityKey, Score: 0.9}}
	_, err = engine.Process(ctx, &models.Classification{
		Category:   "Projects",
		Name:       "Redesign the website",
		Confidence: 85,
	}, testSource("m2"))
	require.NoError(t, err)

	records, err = events.ListBySource(ctx, "telegram")
	require.NoError(t, err)

	var linked bool
	for _, rec := range records {
		if rec.EventType == "MessageSimilar" && rec.Attributes["link_created"] == true {
			linked = true
			assert.Equal(t, first.IdentityKey, rec.Attributes["linked_item_pk"])
		}
	}
	assert.True(t, linked)
}

func TestProcessEventAppendFailureIsNotFatal(t *testing.T) {
	emb := &fakeEmbedder{vector: unitVector(0)}
	idx := &fakeIndex{}
	items := storage.NewMemoryRepository(idx)
	engine := NewEngine(emb, idx, items, failingLog{}, Config{Dimensions: testDims}, zap.NewNop())

	result, err := engine.Process(context.Background(), &models.Classification{
		Category:   "Admin",
		Name:       "Renew passport",
		Confidence: 90,
	}, testSource("m1"))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, result.Action)
}

type failingLog struct{}

func (failingLog) Append(ctx context.Context, ev event.Event) error {
	return errors.New("log down")
}

func (failingLog) ListBySource(ctx context.Context, source string) ([]event.Record, error) {
	return nil, nil
}

func (failingLog) Close() error { return nil }

// unitVector returns a unit vector along the given axis.
func unitVector(axis int) []float32 {
	v := make([]float32, testDims)
	v[axis] = 1
	return v
}
