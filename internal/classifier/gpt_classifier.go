package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/models"
)

type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

const classifyPrompt = `You are a life-management assistant. Classify the note below into exactly one category:
- People: relationships, follow-ups with a specific person
- Projects: multi-step efforts with an outcome
- Ideas: thoughts to capture, no commitment yet
- Admin: chores, paperwork, bookings, payments

Return ONLY a JSON object with this structure:
{
    "category": "People|Projects|Ideas|Admin",
    "name": "short title for the tracked topic",
    "status": "action hint like start/done, or empty",
    "next_action": "next concrete step, or empty",
    "notes": "any extra context, or empty",
    "confidence": 0-100
}

Note: %s`

func (c *GPTClassifier) Classify(ctx context.Context, text string) (*models.Classification, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(classifyPrompt, text),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return c.fallback(ctx, text)
	}

	var cls models.Classification
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &cls); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return c.fallback(ctx, text)
	}

	if _, err := cls.Validate(); err != nil {
		c.logger.Error("GPT returned an unknown category",
			zap.Error(err),
			zap.String("category", cls.Category))
		return c.fallback(ctx, text)
	}

	cls.Normalize()
	return &cls, nil
}

func (c *GPTClassifier) Model() string {
	return c.model
}

// fallback keeps ingestion alive when GPT is unreachable or misbehaving.
func (c *GPTClassifier) fallback(ctx context.Context, text string) (*models.Classification, error) {
	return NewKeywordClassifier().Classify(ctx, text)
}
