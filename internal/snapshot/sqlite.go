package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps the table as a single row in a local sqlite database.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, errors.New("db path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS session_snapshots (
  name TEXT PRIMARY KEY,
  doc TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session_snapshots table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, t Table) error {
	data, err := encode(t)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
INSERT INTO session_snapshots (name, doc) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP;`,
		snapshotName, string(data))
	if err != nil {
		return fmt.Errorf("upsert session snapshot: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (Table, error) {
	var doc string
	err := b.db.QueryRowContext(ctx, `SELECT doc FROM session_snapshots WHERE name = ?;`, snapshotName).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	return decode([]byte(doc))
}

func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
