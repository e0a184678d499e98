package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pingline/pingline/pkg/notification"
)

// Store persists delivery records. History is append-only per user: records
// are created once and only their status fields are updated as engagement
// events arrive.
type Store interface {
	Create(ctx context.Context, d *notification.Delivery) error
	Get(ctx context.Context, id string) (*notification.Delivery, error)
	Update(ctx context.Context, d *notification.Delivery) error
	// ListByUser returns the user's deliveries created at or after since,
	// oldest first.
	ListByUser(ctx context.Context, userID string, since time.Time) ([]*notification.Delivery, error)
	// Users returns every user id with at least one delivery on record.
	Users(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory Store for tests and single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*notification.Delivery
	byUser map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*notification.Delivery),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, d *notification.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[d.ID]; exists {
		return fmt.Errorf("delivery %s already exists", d.ID)
	}
	cp := *d
	s.byID[d.ID] = &cp
	s.byUser[d.UserID] = append(s.byUser[d.UserID], d.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*notification.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, d *notification.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[d.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, d.ID)
	}
	cp := *d
	s.byID[d.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, since time.Time) ([]*notification.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]*notification.Delivery, 0, len(ids))
	for _, id := range ids {
		d := s.byID[id]
		if d.CreatedAt.Before(since) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Users(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.byUser))
	for id := range s.byUser {
		users = append(users, id)
	}
	return users, nil
}
