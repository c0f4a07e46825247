package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx used here.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS dataset_uploads (
	seq        BIGSERIAL PRIMARY KEY,
	id         UUID UNIQUE,
	name       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	col_count  INTEGER NOT NULL,
	byte_size  BIGINT NOT NULL,
	id_column  TEXT,
	loaded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dataset_uploads_loaded_at_idx ON dataset_uploads (loaded_at DESC);
`

// PostgresLog stores upload history in the dataset_uploads table.
type PostgresLog struct {
	db DBTX
}

// NewPostgresLog wraps a pool or transaction.
func NewPostgresLog(db DBTX) *PostgresLog {
	return &PostgresLog{db: db}
}

// EnsureSchema creates the history table if it does not exist.
func (p *PostgresLog) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create dataset_uploads: %w", err)
	}
	return nil
}

// Record inserts e. An empty ID is stored as NULL, which is how the default
// dataset is recorded; it has no upload id to reopen it by.
func (p *PostgresLog) Record(ctx context.Context, e Entry) error {
	id, err := datasetID(e.ID)
	if err != nil {
		return fmt.Errorf("record upload %q: %w", e.Name, err)
	}
	if e.LoadedAt.IsZero() {
		e.LoadedAt = time.Now()
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO dataset_uploads (id, name, row_count, col_count, byte_size, id_column, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		id,
		e.Name,
		int32(e.Rows),
		int32(e.Columns),
		e.Bytes,
		pgtype.Text{String: e.IDColumn, Valid: e.IDColumn != ""},
		pgtype.Timestamptz{Time: e.LoadedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record upload %q: %w", e.Name, err)
	}
	return nil
}

func (p *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, name, row_count, col_count, byte_size, id_column, loaded_at
		FROM dataset_uploads
		ORDER BY loaded_at DESC
		LIMIT $1`, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresLog) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx,
		"DELETE FROM dataset_uploads WHERE loaded_at < $1",
		pgtype.Timestamptz{Time: cutoff, Valid: true},
	)
	if err != nil {
		return 0, fmt.Errorf("purge uploads: %w", err)
	}
	return tag.RowsAffected(), nil
}

// datasetID converts an entry id to a nullable UUID.
func datasetID(s string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("dataset id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		id       pgtype.UUID
		name     string
		rowCount int32
		colCount int32
		size     int64
		idColumn pgtype.Text
		loadedAt pgtype.Timestamptz
	)
	if err := rows.Scan(&id, &name, &rowCount, &colCount, &size, &idColumn, &loadedAt); err != nil {
		return Entry{}, fmt.Errorf("scan upload: %w", err)
	}

	e := Entry{
		Name:     name,
		Rows:     int(rowCount),
		Columns:  int(colCount),
		Bytes:    size,
		IDColumn: idColumn.String,
		LoadedAt: loadedAt.Time,
	}
	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	return e, nil
}
