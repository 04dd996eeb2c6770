package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nihilism/server/internal/models"
)

const snapshotExt = ".json"

// FileStore writes one JSON snapshot per player into a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("save directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+snapshotExt)
}

// Put writes to a temp file and renames it over the snapshot so readers
// never see a partial write.
func (s *FileStore) Put(ctx context.Context, p *models.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || !validID(p.ID) {
		return fmt.Errorf("invalid player id")
	}
	data, err := Encode(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, p.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(p.ID)); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validID(playerID) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	data, err := os.ReadFile(s.path(playerID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read save directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Delete(ctx context.Context, playerID string) error {
	if !validID(playerID) {
		return nil
	}
	err := os.Remove(s.path(playerID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
