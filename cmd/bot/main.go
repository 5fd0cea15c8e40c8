package main

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/bot"
	"github.com/xaenox/second-brain/internal/classifier"
	"github.com/xaenox/second-brain/internal/dedup"
	"github.com/xaenox/second-brain/internal/embedding"
	"github.com/xaenox/second-brain/internal/event"
	"github.com/xaenox/second-brain/internal/storage"
	"github.com/xaenox/second-brain/internal/vectorindex"
	"github.com/xaenox/second-brain/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Embedding chain: OpenAI first, Ollama as fallback.
	embedder := embedding.NewChain(
		cfg.Similarity.Dimensions,
		logger,
		embedding.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.Similarity.Dimensions),
		embedding.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.EmbeddingModel),
	)
	defer embedder.Close()

	// Initialize storage, event log and vector index
	var (
		index  vectorindex.Index
		items  storage.Repository
		events event.Log
	)
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		index = newIndex(cfg, nil, logger)
		items = storage.NewMemoryRepository(index)
		events = event.NewMemoryLog()
	} else {
		logger.Info("Using PostgreSQL storage")
		db, err := storage.Open(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
		defer db.Close()

		index = newIndex(cfg, db, logger)
		items = storage.NewPostgresRepository(db, index, logger)
		events = event.NewPostgresLog(db, logger)
	}
	defer index.Close()
	defer items.Close()
	defer events.Close()

	// Dedup engine
	engine := dedup.NewEngine(embedder, index, items, events, dedup.Config{
		Threshold:  cfg.Similarity.Threshold,
		TopK:       cfg.Similarity.TopK,
		Dimensions: cfg.Similarity.Dimensions,
	}, logger)

	// Classifier
	clf := classifier.NewGPTClassifier(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		logger,
	)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, engine, clf, events, items, cfg.Classifier.MinConfidence, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

// newIndex builds the configured similarity index backend. The postgres scan
// backend needs a database handle, so in-memory runs fall back to the linear
// in-process index.
func newIndex(cfg *config.Config, db *sql.DB, logger *zap.Logger) vectorindex.Index {
	switch cfg.Vector.Backend {
	case "sqlite-vec":
		index, err := vectorindex.NewSQLiteVecIndex(vectorindex.SQLiteVecConfig{
			DBPath:     cfg.Vector.SQLitePath,
			Dimensions: cfg.Similarity.Dimensions,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize sqlite-vec index", zap.Error(err))
		}
		return index
	case "postgres":
		if db != nil {
			return vectorindex.NewPostgresIndex(db, logger)
		}
		logger.Warn("Postgres vector backend requires postgres storage, using in-memory index")
		return vectorindex.NewMemoryIndex()
	default:
		return vectorindex.NewMemoryIndex()
	}
}
