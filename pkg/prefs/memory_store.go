package prefs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. Suitable for tests and
// single-process deployments; durable storage belongs to the embedding
// application.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Preferences
}

// NewMemoryStore creates an empty in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Preferences)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	p, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return clone(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock; another goroutine may have won.
	if p, ok := s.users[userID]; ok {
		return clone(p), nil
	}
	p = Default(userID)
	p.UpdatedAt = time.Now()
	s.users[userID] = p
	return clone(p), nil
}

func (s *MemoryStore) Update(ctx context.Context, userID string, patch Patch) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		current = Default(userID)
	}

	updated, err := apply(clone(current), patch)
	if err != nil {
		return Preferences{}, err
	}
	updated.UpdatedAt = time.Now()
	s.users[userID] = updated
	return clone(updated), nil
}
