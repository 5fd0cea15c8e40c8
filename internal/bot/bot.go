package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/classifier"
	"github.com/xaenox/second-brain/internal/dedup"
	"github.com/xaenox/second-brain/internal/event"
	"github.com/xaenox/second-brain/internal/models"
	"github.com/xaenox/second-brain/internal/storage"
)

// sourceChannel identifies this transport in event partition keys.
const sourceChannel = "telegram"

type Bot struct {
	api           *tgbotapi.BotAPI
	engine        *dedup.Engine
	classifier    classifier.Classifier
	events        event.Log
	items         storage.Repository
	logger        *zap.Logger
	minConfidence int
}

func New(
	token string,
	engine *dedup.Engine,
	clf classifier.Classifier,
	events event.Log,
	items storage.Repository,
	minConfidence int,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:           api,
		engine:        engine,
		classifier:    clf,
		events:        events,
		items:         items,
		logger:        logger,
		minConfidence: minConfidence,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	text := message.Text
	if message.Caption != "" {
		text = message.Caption
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	received := event.MessageReceived{
		RawText:    text,
		Source:     sourceChannel,
		SourceID:   strconv.Itoa(message.MessageID),
		ChatID:     strconv.FormatInt(message.Chat.ID, 10),
		ReceivedAt: time.Now().UTC(),
	}
	if err := b.events.Append(ctx, received); err != nil {
		b.logger.Error("Failed to append MessageReceived event",
			zap.Error(err),
			zap.Int("message_id", message.MessageID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't record your message. Please try again.")
		return
	}

	cls, err := b.classifier.Classify(ctx, text)
	if err != nil {
		b.logger.Error("Failed to classify message",
			zap.Error(err),
			zap.Int("message_id", message.MessageID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't classify your message. Please try again.")
		return
	}

	if cls.Confidence < b.minConfidence {
		snippet := text
		if len(snippet) > 50 {
			snippet = snippet[:50]
		}
		b.sendMessage(message.Chat.ID,
			fmt.Sprintf("⚠️ Low confidence (%d%%) - not saved. Please rephrase: %s", cls.Confidence, snippet))
		return
	}

	result, err := b.engine.Process(ctx, cls, dedup.Source{
		Source:        sourceChannel,
		SourceID:      received.SourceID,
		RawText:       text,
		SourceEventSK: received.SortKey(),
		ClassifiedBy:  b.classifier.Model(),
	})
	if err != nil {
		b.logger.Error("Failed to process message",
			zap.Error(err),
			zap.Int("message_id", message.MessageID),
			zap.String("category", cls.Category))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save your message. Please try again.")
		return
	}

	b.sendResult(message.Chat.ID, cls, result)
}

func (b *Bot) sendResult(chatID int64, cls *models.Classification, result *dedup.Result) {
	var reply string
	if result.Action == dedup.ActionUpdated {
		reply = fmt.Sprintf("🔄 Updated existing %s item (similarity: %.0f%%)",
			result.Category, result.Similarity*100)
	} else {
		reply = fmt.Sprintf("✅ Saved as %s (confidence: %d%%)", result.Category, cls.Confidence)
	}
	if cls.Name != "" {
		reply += "\n📝 " + cls.Name
	}
	b.sendMessage(chatID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "open":
		b.handleList(ctx, message, models.StatusOpen)
	case "closed":
		b.handleList(ctx, message, models.StatusCompleted)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Second Brain! 🧠
Send me any note and I'll classify it into People, Projects, Ideas or Admin.

Repeated notes about the same topic update the existing item instead of creating duplicates.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/open [category] - Show open items
/closed [category] - Show completed items

Just send a note and I'll file it for you.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleList(ctx context.Context, message *tgbotapi.Message, status models.Status) {
	categories := models.Categories()
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		category, err := models.ParseCategory(arg)
		if err != nil {
			b.sendMessage(message.Chat.ID, fmt.Sprintf("Unknown category %q. Use People, Projects, Ideas or Admin.", arg))
			return
		}
		categories = []models.Category{category}
	}

	var lines []string
	for _, category := range categories {
		items, err := b.items.List(ctx, category, status)
		if err != nil {
			b.logger.Error("Failed to list items",
				zap.Error(err),
				zap.String("category", string(category)))
			b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your items.")
			return
		}
		for _, item := range items {
			name := item.Name
			if name == "" {
				name = "(untitled)"
			}
			line := fmt.Sprintf("• [%s] %s", category, name)
			if item.NextAction != "" {
				line += " → " + item.NextAction
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("No %s items found.", status))
		return
	}
	b.sendMessage(message.Chat.ID, strings.Join(lines, "\n"))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
