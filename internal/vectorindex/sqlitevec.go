package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteVecIndex is the ANN-backed index, using SQLite with the sqlite-vec
// extension. vec0 virtual tables use integer rowids, so a mapping table
// carries the string identity keys and the category metadata used to scope
// searches.
type SQLiteVecIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// SQLiteVecConfig holds configuration for the sqlite-vec index.
type SQLiteVecConfig struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the fixed embedding dimension; must match the embedding
	// chain's dimension for the life of the index.
	Dimensions int
}

func NewSQLiteVecIndex(c SQLiteVecConfig, logger *zap.Logger) (*SQLiteVecIndex, error) {
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			identity_key TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating items table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Int("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion))

	return &SQLiteVecIndex{db: db, logger: logger}, nil
}

func (idx *SQLiteVecIndex) Upsert(ctx context.Context, rec Record) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	blob := EncodeVector(rec.Vector)

	var existingRowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_items WHERE identity_key = ?`, rec.IdentityKey,
	).Scan(&existingRowID)

	switch err {
	case nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE vec_items SET category = ?, name = ?, status = ? WHERE rowid = ?`,
			rec.Category, rec.Name, rec.Status, existingRowID,
		); err != nil {
			return fmt.Errorf("updating record %s: %w", rec.IdentityKey, err)
		}

		// vec0 does not support UPDATE; replace via DELETE + INSERT.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for %s: %w", rec.IdentityKey, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			existingRowID, blob,
		); err != nil {
			return fmt.Errorf("re-inserting embedding for %s: %w", rec.IdentityKey, err)
		}
	case sql.ErrNoRows:
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_items(identity_key, category, name, status) VALUES (?, ?, ?, ?)`,
			rec.IdentityKey, rec.Category, rec.Name, rec.Status,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.IdentityKey, err)
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for %s: %w", rec.IdentityKey, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", rec.IdentityKey, err)
		}
	default:
		return fmt.Errorf("checking for existing record %s: %w", rec.IdentityKey, err)
	}

	return tx.Commit()
}

func (idx *SQLiteVecIndex) Search(ctx context.Context, category string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	// KNN query via vec0 MATCH, pre-filtered to the category's rowids, then
	// joined back for identity keys. Cosine distance -> similarity.
	rows, err := idx.db.QueryContext(ctx, `
		SELECT
			i.identity_key,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_items i ON i.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND ve.rowid IN (SELECT rowid FROM vec_items WHERE category = ?)
		ORDER BY ve.distance
	`, EncodeVector(vector), topK, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var key string
		var distance float64
		if err := rows.Scan(&key, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrQueryFailed, err)
		}
		matches = append(matches, Match{
			IdentityKey: key,
			Score:       1.0 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	idx.logger.Debug("Queried sqlite-vec index",
		zap.String("category", category),
		zap.Int("results", len(matches)))
	return matches, nil
}

func (idx *SQLiteVecIndex) Delete(ctx context.Context, identityKey string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_items WHERE identity_key = ?`, identityKey,
	).Scan(&rowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up record %s: %w", identityKey, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", identityKey, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_items WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting record %s: %w", identityKey, err)
	}

	return tx.Commit()
}

func (idx *SQLiteVecIndex) Close() error {
	return idx.db.Close()
}
