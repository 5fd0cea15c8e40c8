// Package dedup decides whether a classified message creates a new item or
// updates an existing near-duplicate, using embedding similarity scoped to
// the message's category.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/embedding"
	"github.com/xaenox/second-brain/internal/event"
	"github.com/xaenox/second-brain/internal/models"
	"github.com/xaenox/second-brain/internal/storage"
	"github.com/xaenox/second-brain/internal/vectorindex"
)

const (
	// DefaultThreshold is the similarity score at or above which an incoming
	// message updates an existing item instead of creating a new one.
	// Matching is inclusive: a score of exactly 0.85 is a match.
	DefaultThreshold = 0.85

	// DefaultTopK is how many candidates a similarity search requests.
	DefaultTopK = 5

	// itemSortKey marks the primary representation of an item in event links.
	itemSortKey = "PROFILE"
)

// Action says what the engine did with a classified message.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Source identifies the inbound message a classification came from.
type Source struct {
	Source        string
	SourceID      string
	RawText       string
	SourceEventSK string
	ClassifiedBy  string
}

// Result is the outcome of a create-or-update decision.
type Result struct {
	Action      Action
	IdentityKey string
	Category    models.Category
	Status      models.Status
	Similarity  float64
}

// Config tunes the engine. Zero values fall back to the defaults; deviating
// from DefaultThreshold changes dedup behavior globally and should be a
// deliberate choice.
type Config struct {
	Threshold  float64
	TopK       int
	Dimensions int
}

// Engine is the similarity matcher. All collaborators are injected so the
// decision logic is testable with fakes; the engine holds no mutable state
// across invocations.
type Engine struct {
	embedder  embedding.Embedder
	index     vectorindex.Index
	items     storage.Repository
	events    event.Log
	logger    *zap.Logger
	threshold float64
	topK      int
	dims      int
}

func NewEngine(
	embedder embedding.Embedder,
	index vectorindex.Index,
	items storage.Repository,
	events event.Log,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		items:     items,
		events:    events,
		logger:    logger,
		threshold: threshold,
		topK:      topK,
		dims:      cfg.Dimensions,
	}
}

// Process runs the create-or-update decision for one classified message.
//
// Failures from the embedding chain or the similarity index abort the whole
// operation: an index outage must never be treated as "no match found" and an
// embedding outage must never silently default to create.
func (e *Engine) Process(ctx context.Context, cls *models.Classification, src Source) (*Result, error) {
	category, err := cls.Validate()
	if err != nil {
		return nil, err
	}
	confidence := cls.NormalizedConfidence()
	status := models.DeriveStatus(cls.Status)
	now := time.Now().UTC()

	cls.Name = strings.TrimSpace(cls.Name)

	// Nameless items get the zero vector and skip matching entirely; they are
	// always a terminal create and can never be matched later.
	if cls.Name == "" {
		result, err := e.create(ctx, category, cls, status, confidence, src, embedding.ZeroVector(e.dims))
		if err != nil {
			return nil, err
		}
		e.appendClassified(ctx, category, confidence, result.IdentityKey, src, now)
		return result, nil
	}

	queryVector, err := e.embedder.Embed(ctx, cls.Name)
	if err != nil {
		return nil, fmt.Errorf("embedding item name: %w", err)
	}

	matches, err := e.index.Search(ctx, string(category), queryVector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("searching %s index: %w", category.Lower(), err)
	}

	best := bestMatch(matches)

	var result *Result
	if best != nil && best.Score >= e.threshold {
		update := models.ItemUpdate{
			Status:       status,
			NextAction:   cls.NextAction,
			Notes:        cls.Notes,
			Confidence:   confidence,
			OriginalText: src.RawText,
			UpdatedAt:    now,
		}
		if err := e.items.Update(ctx, best.IdentityKey, update); err != nil {
			return nil, fmt.Errorf("updating item %s: %w", best.IdentityKey, err)
		}
		e.logger.Info("Updated existing item",
			zap.String("identity_key", best.IdentityKey),
			zap.String("category", string(category)),
			zap.Float64("similarity", best.Score))
		result = &Result{
			Action:      ActionUpdated,
			IdentityKey: best.IdentityKey,
			Category:    category,
			Status:      status,
			Similarity:  best.Score,
		}
	} else {
		result, err = e.create(ctx, category, cls, status, confidence, src, queryVector)
		if err != nil {
			return nil, err
		}
	}

	e.appendClassified(ctx, category, confidence, result.IdentityKey, src, now)
	e.appendSimilar(ctx, result, best, src, now)
	return result, nil
}

func (e *Engine) create(
	ctx context.Context,
	category models.Category,
	cls *models.Classification,
	status models.Status,
	confidence float64,
	src Source,
	vector []float32,
) (*Result, error) {
	item := &models.Item{
		Category:     category,
		Name:         cls.Name,
		Status:       status,
		NextAction:   cls.NextAction,
		Notes:        cls.Notes,
		Confidence:   confidence,
		Embedding:    vector,
		OriginalText: src.RawText,
	}
	if err := e.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	e.logger.Info("Created new item",
		zap.String("identity_key", item.IdentityKey),
		zap.String("category", string(category)),
		zap.String("status", string(status)))

	return &Result{
		Action:      ActionCreated,
		IdentityKey: item.IdentityKey,
		Category:    category,
		Status:      status,
		Similarity:  0.0,
	}, nil
}

func bestMatch(matches []vectorindex.Match) *vectorindex.Match {
	var best *vectorindex.Match
	for i := range matches {
		if best == nil || matches[i].Score > best.Score {
			best = &matches[i]
		}
	}
	return best
}

// Event appends are best effort: the item write already succeeded and the
// log is allowed to lag it (no cross-store transaction exists).
func (e *Engine) appendClassified(
	ctx context.Context,
	category models.Category,
	confidence float64,
	identityKey string,
	src Source,
	now time.Time,
) {
	ev := event.MessageClassified{
		Source:          src.Source,
		SourceID:        src.SourceID,
		Classification:  category,
		ConfidenceScore: confidence,
		ClassifiedBy:    src.ClassifiedBy,
		ClassifiedAt:    now,
		ItemPK:          identityKey,
		ItemSK:          itemSortKey,
		SourceEventSK:   src.SourceEventSK,
	}
	if err := e.events.Append(ctx, ev); err != nil {
		e.logger.Error("Failed to append MessageClassified event",
			zap.Error(err),
			zap.String("source_id", src.SourceID))
	}
}

func (e *Engine) appendSimilar(ctx context.Context, result *Result, best *vectorindex.Match, src Source, now time.Time) {
	ev := event.MessageSimilar{
		Source:        src.Source,
		SourceID:      src.SourceID,
		ThresholdUsed: e.threshold,
		SearchModel:   e.embedder.Model(),
		SearchedAt:    now,
		SourceEventSK: src.SourceEventSK,
	}
	if best != nil {
		ev.SimilarityScore = best.Score
	}
	if result.Action == ActionUpdated {
		ev.LinkCreated = true
		ev.LinkedItemPK = result.IdentityKey
		ev.LinkedItemSK = itemSortKey
	}
	if err := e.events.Append(ctx, ev); err != nil {
		e.logger.Error("Failed to append MessageSimilar event",
			zap.Error(err),
			zap.String("source_id", src.SourceID))
	}
}
