package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/second-brain/internal/models"
	"github.com/xaenox/second-brain/internal/vectorindex"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// Open connects to PostgreSQL and applies the embedded schema migrations.
// The returned handle is shared by the item repository, the event log and the
// scan-based vector index.
func Open(config DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return nil, fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return nil, fmt.Errorf("error executing migrations: %w", err)
	}

	return db, nil
}

// PostgresRepository persists items in PostgreSQL and mirrors new embeddings
// into the vector index on create.
type PostgresRepository struct {
	db     *sql.DB
	index  vectorindex.Index
	logger *zap.Logger
}

func NewPostgresRepository(db *sql.DB, index vectorindex.Index, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, index: index, logger: logger}
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) error {
	item.IdentityKey = models.BuildIdentityKey(item.Category, uuid.New().String()[:8])
	item.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO items (identity_key, category, name, status, next_action, notes, confidence, embedding, original_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var blob []byte
	if item.Embedding != nil {
		blob = vectorindex.EncodeVector(item.Embedding)
	}

	if _, err := r.db.ExecContext(ctx, query,
		item.IdentityKey,
		item.Category.Lower(),
		item.Name,
		string(item.Status),
		item.NextAction,
		item.Notes,
		item.Confidence,
		blob,
		item.OriginalText,
		item.CreatedAt,
	); err != nil {
		return fmt.Errorf("%w: creating item: %v", ErrStorageFailure, err)
	}

	if err := r.index.Upsert(ctx, vectorindex.Record{
		IdentityKey: item.IdentityKey,
		Vector:      item.Embedding,
		Category:    string(item.Category),
		Name:        item.Name,
		Status:      string(item.Status),
	}); err != nil {
		return fmt.Errorf("%w: indexing item vector: %v", ErrStorageFailure, err)
	}

	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, identityKey string, update models.ItemUpdate) error {
	query := `
		UPDATE items
		SET status = $1, next_action = $2, notes = $3, confidence = $4, original_text = $5, updated_at = $6
		WHERE identity_key = $7`

	result, err := r.db.ExecContext(ctx, query,
		string(update.Status),
		update.NextAction,
		update.Notes,
		update.Confidence,
		update.OriginalText,
		update.UpdatedAt,
		identityKey,
	)
	if err != nil {
		return fmt.Errorf("%w: updating item: %v", ErrStorageFailure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected: %v", ErrStorageFailure, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, identityKey string) (*models.Item, error) {
	query := `
		SELECT identity_key, category, name, status, next_action, notes, confidence, embedding, original_text, created_at, updated_at
		FROM items
		WHERE identity_key = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, identityKey))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) List(ctx context.Context, category models.Category, status models.Status) ([]*models.Item, error) {
	query := `
		SELECT identity_key, category, name, status, next_action, notes, confidence, embedding, original_text, created_at, updated_at
		FROM items
		WHERE category = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, category.Lower(), string(status))
	if err != nil {
		return nil, fmt.Errorf("error querying items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	var category string
	var status string
	var blob []byte
	var updatedAt sql.NullTime

	err := row.Scan(
		&item.IdentityKey,
		&category,
		&item.Name,
		&status,
		&item.NextAction,
		&item.Notes,
		&item.Confidence,
		&blob,
		&item.OriginalText,
		&item.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := models.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	item.Category = parsed
	item.Status = models.Status(status)

	if len(blob) > 0 {
		vec, err := vectorindex.DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		item.Embedding = vec
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		item.UpdatedAt = &t
	}
	return item, nil
}
