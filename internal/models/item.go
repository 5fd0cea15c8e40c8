package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an item.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusWaiting    Status = "waiting"
)

// DeriveStatus maps an action hint to a status. This is a fixed keyword
// lookup, not NLP; exact status values pass through and anything unmapped
// defaults to open.
func DeriveStatus(hint string) Status {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "start", "started", string(StatusInProgress):
		return StatusInProgress
	case "done", "complete", string(StatusCompleted):
		return StatusCompleted
	case string(StatusWaiting):
		return StatusWaiting
	default:
		return StatusOpen
	}
}

// Item is a durable unit of tracked information. Category, Name, CreatedAt and
// IdentityKey are immutable after creation; the remaining fields are
// overwritten or merged on every subsequent matching message.
type Item struct {
	IdentityKey  string     `json:"identity_key"`
	Category     Category   `json:"category"`
	Name         string     `json:"name,omitempty"`
	Status       Status     `json:"status"`
	NextAction   string     `json:"next_action,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Confidence   float64    `json:"confidence"`
	Embedding    []float32  `json:"embedding,omitempty"`
	OriginalText string     `json:"original_text,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ItemUpdate carries the mutable fields applied on a similarity match.
type ItemUpdate struct {
	Status       Status
	NextAction   string
	Notes        string
	Confidence   float64
	OriginalText string
	UpdatedAt    time.Time
}

// BuildIdentityKey builds the partition key "{category_lower}#{item_id}".
func BuildIdentityKey(category Category, itemID string) string {
	return fmt.Sprintf("%s#%s", category.Lower(), itemID)
}

// ParseIdentityKey splits an identity key into its category and item id.
func ParseIdentityKey(key string) (Category, string, error) {
	parts := strings.SplitN(key, "#", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid identity key: %q", key)
	}
	category, err := ParseCategory(parts[0])
	if err != nil {
		return "", "", err
	}
	return category, parts[1], nil
}
