package classifier

import (
	"context"
	"strings"

	"github.com/xaenox/second-brain/internal/models"
)

// Classifier turns a free-text note into the structured classification
// contract consumed by the dedup engine.
type Classifier interface {
	Classify(ctx context.Context, text string) (*models.Classification, error)
	Model() string
}

// KeywordClassifier is a fixed keyword lookup used when no AI provider is
// reachable. It is deliberately crude; its confidence stays low so borderline
// notes get flagged instead of silently filed.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var categoryKeywords = map[models.Category][]string{
	models.CategoryPeople:   {"call", "meet", "birthday", "friend", "mom", "dad", "talk to"},
	models.CategoryProjects: {"project", "build", "ship", "deadline", "launch", "finish", "fix"},
	models.CategoryIdeas:    {"idea", "what if", "maybe", "could", "imagine", "concept"},
	models.CategoryAdmin:    {"pay", "renew", "book", "schedule", "tax", "bill", "appointment"},
}

func (c *KeywordClassifier) Classify(ctx context.Context, text string) (*models.Classification, error) {
	lowered := strings.ToLower(text)

	category := models.CategoryIdeas
	confidence := 40
	for cat, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				category = cat
				confidence = 65
				break
			}
		}
		if confidence > 40 {
			break
		}
	}

	return &models.Classification{
		Category:   string(category),
		Name:       shortName(text),
		Confidence: confidence,
	}, nil
}

func (c *KeywordClassifier) Model() string {
	return "keyword-fallback"
}

// shortName truncates the first line of the text to a title-sized name.
func shortName(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	words := strings.Fields(line)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
