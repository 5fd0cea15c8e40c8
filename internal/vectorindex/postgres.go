package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// PostgresIndex stores vectors in the shared PostgreSQL database and answers
// queries with a category-scoped table scan, computing cosine similarity in
// process. Fine for the item counts a personal system accumulates; swap in
// the ANN backend when that stops being true.
type PostgresIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresIndex wraps an already-open database handle; schema setup is
// owned by the storage package migrations.
func NewPostgresIndex(db *sql.DB, logger *zap.Logger) *PostgresIndex {
	return &PostgresIndex{db: db, logger: logger}
}

func (idx *PostgresIndex) Upsert(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO vector_index (identity_key, category, name, status, vector)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_key) DO UPDATE
		SET category = EXCLUDED.category,
		    name = EXCLUDED.name,
		    status = EXCLUDED.status,
		    vector = EXCLUDED.vector`

	if _, err := idx.db.ExecContext(ctx, query,
		rec.IdentityKey, rec.Category, rec.Name, rec.Status, EncodeVector(rec.Vector),
	); err != nil {
		return fmt.Errorf("error indexing vector: %w", err)
	}
	return nil
}

func (idx *PostgresIndex) Search(ctx context.Context, category string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT identity_key, vector
		FROM vector_index
		WHERE category = $1`

	rows, err := idx.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrQueryFailed, err)
		}
		stored, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		matches = append(matches, Match{
			IdentityKey: key,
			Score:       Cosine(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	idx.logger.Debug("Scanned vector index",
		zap.String("category", category),
		zap.Int("candidates", len(matches)))
	return matches, nil
}

func (idx *PostgresIndex) Delete(ctx context.Context, identityKey string) error {
	if _, err := idx.db.ExecContext(ctx,
		`DELETE FROM vector_index WHERE identity_key = $1`, identityKey,
	); err != nil {
		return fmt.Errorf("error deleting vector: %w", err)
	}
	return nil
}

// Close is a no-op; the database handle is shared and closed by its owner.
func (idx *PostgresIndex) Close() error {
	return nil
}
