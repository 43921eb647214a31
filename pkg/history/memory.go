package history

import (
	"context"
	"sync"
)

// MemoryStore keeps turns in memory. Useful for tests and for running the
// relay without persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	turns  []*Turn
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Record(_ context.Context, turn *Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *turn
	stored.ID = s.nextID
	s.nextID++
	s.turns = append(s.turns, &stored)
	turn.ID = stored.ID
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Turn, 0, len(s.turns))
	for i := len(s.turns) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		copied := *s.turns[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
