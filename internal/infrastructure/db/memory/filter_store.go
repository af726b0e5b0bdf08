// Package memory holds process-local implementations of the core ports, used
// when no Redis is configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// FilterStore keeps session filters in a map. State is lost on restart and not
// shared between replicas.
type FilterStore struct {
	mu     sync.RWMutex
	states map[string]domain.FilterState
}

func NewFilterStore() *FilterStore {
	return &FilterStore{states: make(map[string]domain.FilterState)}
}

func (s *FilterStore) Load(_ context.Context, sessionID string) (domain.FilterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[sessionID]
	if !ok {
		return domain.FilterState{}, nil
	}
	state.Roles = append([]string(nil), state.Roles...)
	return state, nil
}

func (s *FilterStore) Save(_ context.Context, sessionID string, state domain.FilterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Roles = append([]string(nil), state.Roles...)
	s.states[sessionID] = state
	return nil
}

func (s *FilterStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, sessionID)
	return nil
}
