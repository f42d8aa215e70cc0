package mowerstate

import (
	"context"
	"sync"
)

// MemoryStore keeps statuses in process memory. Used when no Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]Status)}
}

// SaveStatus stores a copy of status
func (s *MemoryStore) SaveStatus(ctx context.Context, status *Status) error {
	if status == nil || status.MowerID == "" {
		return ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.MowerID] = *status
	return nil
}

// GetStatus returns a copy of the stored status
func (s *MemoryStore) GetStatus(ctx context.Context, mowerID string) (*Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[mowerID]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

// CheckHealth always succeeds
func (s *MemoryStore) CheckHealth(ctx context.Context) error {
	return nil
}
