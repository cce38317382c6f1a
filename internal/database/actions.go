// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/gofish/internal/cache"
)

// Action types that change a session's row in game_sessions.
const (
	ActionSessionFinished = "gameFinished"
	ActionSessionDeleted  = "gameDeleted"
)

const actionSchema = `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'in_progress',
		winner TEXT,
		start_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		end_time TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS session_actions (
		session_id UUID NOT NULL REFERENCES game_sessions(id),
		seq BIGINT NOT NULL,
		player_id TEXT,
		action_type TEXT NOT NULL,
		action_payload JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
`

// ActionLog writes historian records into game_sessions and session_actions.
type ActionLog struct {
	pool *pgxpool.Pool
}

func NewActionLog(pool *pgxpool.Pool) *ActionLog {
	return &ActionLog{pool: pool}
}

// EnsureSchema creates the historian tables if they are missing.
func (l *ActionLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, actionSchema); err != nil {
		return fmt.Errorf("create historian tables: %w", err)
	}
	return nil
}

// InsertActions stores a batch of records in a single transaction. A record that was
// already stored (same session and seq) is skipped, so replaying a batch is harmless.
func (l *ActionLog) InsertActions(ctx context.Context, records []cache.SessionActionRecord) error {
	return pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.SessionID, rec.Seq, err)
			}
		}
		return nil
	})
}

// insertActionTx upserts the session row, inserts the action, and closes the session
// row when the action ends it.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.SessionActionRecord) error {
	upsertSessionQ := `
		INSERT INTO game_sessions (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertSessionQ, rec.SessionID, at); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO session_actions (
			session_id, seq, player_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, seq) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.SessionID, int64(rec.Seq), rec.PlayerID, rec.ActionType, payload, at,
	); err != nil {
		return err
	}

	switch rec.ActionType {
	case ActionSessionFinished:
		finalizeQ := `
			UPDATE game_sessions
			SET status = 'completed', winner = $2, end_time = $3
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err = tx.Exec(ctx, finalizeQ, rec.SessionID, rec.PlayerID, at)
	case ActionSessionDeleted:
		abandonQ := `
			UPDATE game_sessions
			SET status = 'abandoned', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err = tx.Exec(ctx, abandonQ, rec.SessionID, at)
	}
	return err
}
