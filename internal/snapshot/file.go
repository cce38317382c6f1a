package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the table as a JSON file on disk.
type FileBackend struct {
	Path string
}

// NewFileBackend creates the parent directory of path if needed.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("snapshot path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileBackend{Path: path}, nil
}

// Save writes to a temp file and renames it over the old snapshot.
func (b *FileBackend) Save(ctx context.Context, t Table) error {
	data, err := encode(t)
	if err != nil {
		return err
	}
	tmp := b.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.Path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load returns an empty table when the file does not exist yet.
func (b *FileBackend) Load(ctx context.Context) (Table, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

func (b *FileBackend) Close() error { return nil }
