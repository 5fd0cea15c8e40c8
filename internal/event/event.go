package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/second-brain/internal/models"
)

// ErrAppendFailed is returned when the underlying event store write fails.
// No retries happen at this layer; callers rely on the deterministic keys for
// idempotent re-delivery.
var ErrAppendFailed = errors.New("event append failed")

// Event is a typed, immutable domain event. Every event derives a partition
// key from its source channel and a sort key from its timestamp so that
// events for one source are retrievable in arrival order.
type Event interface {
	EventType() string
	Timestamp() time.Time
	PartitionKey() string
	SortKey() string
	Attributes() map[string]any
}

// Log is the append-only event store. Events are never updated or deleted;
// the log is the audit trail.
type Log interface {
	Append(ctx context.Context, ev Event) error
	// ListBySource returns the stored records for one source channel in sort
	// key order. Replay and audit only; the ingestion hot path is write-only.
	ListBySource(ctx context.Context, source string) ([]Record, error)
	Close() error
}

// Record is the persisted shape of an event.
type Record struct {
	PK         string
	SK         string
	EventType  string
	Timestamp  time.Time
	Attributes map[string]any
}

func eventPK(source string) string {
	return "EVENT#" + source
}

// MessageReceived is appended when a raw message arrives from a source
// channel. Its sort key is the natural idempotency key: re-delivery of the
// same upstream message replaces the record instead of duplicating it.
type MessageReceived struct {
	RawText    string
	Source     string
	SourceID   string
	ChatID     string
	ReceivedAt time.Time
}

func (e MessageReceived) EventType() string    { return "MessageReceived" }
func (e MessageReceived) Timestamp() time.Time { return e.ReceivedAt }
func (e MessageReceived) PartitionKey() string { return eventPK(e.Source) }

func (e MessageReceived) SortKey() string {
	return fmt.Sprintf("%s#%s", e.ReceivedAt.UTC().Format(time.RFC3339Nano), e.SourceID)
}

func (e MessageReceived) Attributes() map[string]any {
	attrs := map[string]any{
		"raw_text":    e.RawText,
		"source":      e.Source,
		"source_id":   e.SourceID,
		"received_at": e.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ChatID != "" {
		attrs["chat_id"] = e.ChatID
	}
	return attrs
}

// MessageClassified is appended after a message has been classified and its
// item created or updated. The sequence number disambiguates multiple
// classification events sharing one source timestamp.
type MessageClassified struct {
	Source          string
	SourceID        string
	Classification  models.Category
	ConfidenceScore float64
	ClassifiedBy    string
	ClassifiedAt    time.Time
	ItemPK          string
	ItemSK          string
	SourceEventSK   string
	Sequence        int
}

func (e MessageClassified) EventType() string    { return "MessageClassified" }
func (e MessageClassified) Timestamp() time.Time { return e.ClassifiedAt }
func (e MessageClassified) PartitionKey() string { return eventPK(e.Source) }

func (e MessageClassified) SortKey() string {
	return fmt.Sprintf("%s#%s#CLASSIFIED#%d",
		e.ClassifiedAt.UTC().Format(time.RFC3339Nano), e.SourceID, e.sequence())
}

func (e MessageClassified) sequence() int {
	if e.Sequence <= 0 {
		return 1
	}
	return e.Sequence
}

func (e MessageClassified) Attributes() map[string]any {
	return map[string]any{
		"classification":   string(e.Classification),
		"confidence_score": clamp01(e.ConfidenceScore),
		"classified_by":    e.ClassifiedBy,
		"classified_at":    e.ClassifiedAt.UTC().Format(time.RFC3339Nano),
		"item_pk":          e.ItemPK,
		"item_sk":          e.ItemSK,
		"source_event_sk":  e.SourceEventSK,
	}
}

// MessageSimilar is appended after a similarity search ran for a message,
// whether or not it produced a link to an existing item.
type MessageSimilar struct {
	Source          string
	SourceID        string
	SimilarEventSK  string
	SimilarityScore float64
	ThresholdUsed   float64
	SearchModel     string
	SearchedAt      time.Time
	LinkCreated     bool
	LinkedItemPK    string
	LinkedItemSK    string
	SourceEventSK   string
	Sequence        int
}

func (e MessageSimilar) EventType() string    { return "MessageSimilar" }
func (e MessageSimilar) Timestamp() time.Time { return e.SearchedAt }
func (e MessageSimilar) PartitionKey() string { return eventPK(e.Source) }

func (e MessageSimilar) SortKey() string {
	seq := e.Sequence
	if seq <= 0 {
		seq = 1
	}
	return fmt.Sprintf("%s#%s#SIMILAR#%d",
		e.SearchedAt.UTC().Format(time.RFC3339Nano), e.SourceID, seq)
}

func (e MessageSimilar) Attributes() map[string]any {
	attrs := map[string]any{
		"similarity_score": clamp01(e.SimilarityScore),
		"threshold_used":   clamp01(e.ThresholdUsed),
		"search_model":     e.SearchModel,
		"searched_at":      e.SearchedAt.UTC().Format(time.RFC3339Nano),
		"link_created":     e.LinkCreated,
		"source_event_sk":  e.SourceEventSK,
	}
	if e.SimilarEventSK != "" {
		attrs["similar_event_sk"] = e.SimilarEventSK
	}
	if e.LinkedItemPK != "" {
		attrs["linked_item_pk"] = e.LinkedItemPK
	}
	if e.LinkedItemSK != "" {
		attrs["linked_item_sk"] = e.LinkedItemSK
	}
	return attrs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
