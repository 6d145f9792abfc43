package authstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps states in a process-local map
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Create saves st if the state is not already present
func (s *MemoryStore) Create(ctx context.Context, st *State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[st.State]; ok {
		return ErrStateExists
	}
	s.states[st.State] = *st
	return nil
}

// Get returns a copy of the stored entry
func (s *MemoryStore) Get(ctx context.Context, state string) (*State, error) {
	s.mu.Lock()
	st, ok := s.states[state]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Delete removes the entry
func (s *MemoryStore) Delete(ctx context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[state]; !ok {
		return false, nil
	}
	delete(s.states, state)
	return true, nil
}

// Sweep removes entries created before cutoff
func (s *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, st := range s.states {
		if st.CreatedAt.Before(cutoff) {
			delete(s.states, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// CheckHealth always succeeds for the in-memory store
func (s *MemoryStore) CheckHealth(ctx context.Context) error {
	return nil
}
