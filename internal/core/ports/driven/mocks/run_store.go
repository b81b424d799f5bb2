package mocks

import (
	"context"
	"sync"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// MockRunStore is an in-memory RunStore for testing.
type MockRunStore struct {
	mu     sync.RWMutex
	states map[string]*domain.RunState
	saves  []domain.RunState

	// SaveErr, when set, fails every Save
	SaveErr error
}

// NewMockRunStore creates an empty store.
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{states: make(map[string]*domain.RunState)}
}

func (m *MockRunStore) Save(ctx context.Context, state *domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	snapshot := *state
	m.states[state.JobID] = &snapshot
	m.saves = append(m.saves, snapshot)
	return nil
}

func (m *MockRunStore) Get(ctx context.Context, jobID string) (*domain.RunState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[jobID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	out := *state
	return &out, nil
}

func (m *MockRunStore) List(ctx context.Context, indexName string, limit int) ([]*domain.RunState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.RunState
	for i := len(m.saves) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.saves[i].IndexName != indexName {
			continue
		}
		state := m.saves[i]
		out = append(out, &state)
	}
	return out, nil
}

// Saves returns every saved snapshot, in order.
func (m *MockRunStore) Saves() []domain.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RunState, len(m.saves))
	copy(out, m.saves)
	return out
}
