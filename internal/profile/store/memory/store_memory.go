// Package memory provides the in-memory record store used in development and
// unit tests.
package memory

import (
	"context"
	"sync"

	"intake/internal/profile"
	id "intake/pkg/domain"
	"intake/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.RWMutex
	records map[id.UserID]map[string]any
}

func New() *Store {
	return &Store{records: make(map[id.UserID]map[string]any)}
}

func (s *Store) Get(_ context.Context, userID id.UserID) (*profile.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return profile.NewRecord(profile.CloneFields(fields)), nil
}

func (s *Store) Merge(_ context.Context, userID id.UserID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[userID]
	if !ok {
		existing = map[string]any{}
	}
	s.records[userID] = profile.MergeFields(existing, profile.CloneFields(fields))
	return nil
}
