package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PostgresLog stores events in the shared PostgreSQL database. The primary
// key (pk, sk) makes re-delivered messages a no-op replace instead of a
// duplicate append.
type PostgresLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresLog wraps an already-open database handle; schema setup is owned
// by the storage package migrations.
func NewPostgresLog(db *sql.DB, logger *zap.Logger) *PostgresLog {
	return &PostgresLog{db: db, logger: logger}
}

func (l *PostgresLog) Append(ctx context.Context, ev Event) error {
	attrs, err := json.Marshal(ev.Attributes())
	if err != nil {
		return fmt.Errorf("%w: marshaling attributes: %v", ErrAppendFailed, err)
	}

	query := `
		INSERT INTO events (pk, sk, event_type, event_timestamp, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pk, sk) DO UPDATE
		SET event_type = EXCLUDED.event_type,
		    event_timestamp = EXCLUDED.event_timestamp,
		    attributes = EXCLUDED.attributes`

	if _, err := l.db.ExecContext(ctx, query,
		ev.PartitionKey(), ev.SortKey(), ev.EventType(), ev.Timestamp().UTC(), attrs,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}

	l.logger.Debug("Appended event",
		zap.String("event_type", ev.EventType()),
		zap.String("pk", ev.PartitionKey()),
		zap.String("sk", ev.SortKey()))
	return nil
}

func (l *PostgresLog) ListBySource(ctx context.Context, source string) ([]Record, error) {
	query := `
		SELECT pk, sk, event_type, event_timestamp, attributes
		FROM events
		WHERE pk = $1
		ORDER BY sk`

	rows, err := l.db.QueryContext(ctx, query, eventPK(source))
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var attrs []byte
		if err := rows.Scan(&rec.PK, &rec.SK, &rec.EventType, &rec.Timestamp, &attrs); err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("error decoding event attributes: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close is a no-op; the database handle is shared and closed by its owner.
func (l *PostgresLog) Close() error {
	return nil
}
