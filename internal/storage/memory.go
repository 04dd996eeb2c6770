package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"nihilism/server/internal/models"
)

// MemoryStore keeps encoded snapshots in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, p *models.Player) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshots[p.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	s.mu.RLock()
	data, ok := s.snapshots[playerID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return Decode(data)
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Delete(ctx context.Context, playerID string) error {
	s.mu.Lock()
	delete(s.snapshots, playerID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
