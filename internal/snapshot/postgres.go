package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// snapshotName is the row that holds the session table.
const snapshotName = "sessions"

// PostgresBackend keeps the table as a single jsonb row in session_snapshots.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend ensures the session_snapshots table exists.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_snapshots (
			name TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create session_snapshots table: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Save(ctx context.Context, t Table) error {
	data, err := encode(t)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO session_snapshots (name, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	if _, err := b.pool.Exec(ctx, q, snapshotName, data); err != nil {
		return fmt.Errorf("upsert session snapshot: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) (Table, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, `SELECT doc FROM session_snapshots WHERE name = $1`, snapshotName).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	return decode(data)
}

// Close leaves the pool open; database.DB is shared with the rest of the process.
func (b *PostgresBackend) Close() error { return nil }
