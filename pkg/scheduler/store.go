package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pingline/pingline/pkg/notification"
)

// ScheduleStore persists pending notification schedules. Counting queries
// back the frequency caps, so they include everything scheduled in the
// period whether or not it was dispatched yet, and exclude cancellations.
type ScheduleStore interface {
	Create(ctx context.Context, s *notification.Schedule) error
	Get(ctx context.Context, id string) (*notification.Schedule, error)
	Update(ctx context.Context, s *notification.Schedule) error
	// CountByType returns the number of non-cancelled schedules of the type
	// for the user with RequestedAt at or after since.
	CountByType(ctx context.Context, userID string, t notification.Type, since time.Time) (int, error)
}

// MemoryScheduleStore is an in-memory ScheduleStore for tests and
// single-process deployments.
type MemoryScheduleStore struct {
	mu     sync.RWMutex
	byID   map[string]*notification.Schedule
	byUser map[string][]string
}

func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		byID:   make(map[string]*notification.Schedule),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryScheduleStore) Create(ctx context.Context, sched *notification.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[sched.ID]; exists {
		return fmt.Errorf("schedule %s already exists", sched.ID)
	}
	cp := *sched
	s.byID[sched.ID] = &cp
	s.byUser[sched.UserID] = append(s.byUser[sched.UserID], sched.ID)
	return nil
}

func (s *MemoryScheduleStore) Get(ctx context.Context, id string) (*notification.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	cp := *sched
	return &cp, nil
}

func (s *MemoryScheduleStore) Update(ctx context.Context, sched *notification.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sched.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, sched.ID)
	}
	cp := *sched
	s.byID[sched.ID] = &cp
	return nil
}

func (s *MemoryScheduleStore) CountByType(ctx context.Context, userID string, t notification.Type, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	for _, id := range s.byUser[userID] {
		sched := s.byID[id]
		if sched.Cancelled || sched.Type != t {
			continue
		}
		if sched.RequestedAt.Before(since) {
			continue
		}
		n++
	}
	return n, nil
}
