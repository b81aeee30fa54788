// Package memory keeps audit events in process. Dev and test backend; the
// Kafka sink carries events out of the process in production.
package memory

import (
	"context"
	"sync"

	"intake/internal/audit"
	id "intake/pkg/domain"
)

type Store struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
}

func New() *Store {
	return &Store{events: make(map[id.UserID][]audit.Event)}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *Store) List(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[userID]
	out := make([]audit.Event, len(events))
	copy(out, events)
	return out, nil
}
