// Package snapshot persists the full session table. Every write overwrites the previous
// document; the last write wins and nothing is transactional across a crash mid-write.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
)

// Table maps session id to the last committed state of that session.
type Table map[uuid.UUID]*models.Session

// Backend stores and loads a whole Table as one document.
type Backend interface {
	Save(ctx context.Context, t Table) error
	Load(ctx context.Context) (Table, error)
	Close() error
}

// Source hands the flusher the current table. game.Store implements it.
type Source interface {
	Snapshot() Table
}

func encode(t Table) ([]byte, error) {
	if t == nil {
		t = Table{}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal session table: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Table, error) {
	t := Table{}
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal session table: %w", err)
	}
	return t, nil
}
