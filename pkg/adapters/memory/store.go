// Package memory provides in-memory adapters: process and scenario stores,
// an event chain service and a signing identity. They are used in tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/flowdhq/flowd/pkg/domain"
)

// Store implements ports.ProcessStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Process
	mu   sync.RWMutex
}

// NewStore creates a new in-memory process store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Process),
	}
}

// Save persists the process in memory. The stored value is a deep copy so
// later caller mutations don't leak into the store.
func (s *Store) Save(ctx context.Context, process *domain.Process) error {
	copied, err := process.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[process.ID] = copied
	return nil
}

// Load retrieves a process copy from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Process, error) {
	s.mu.RLock()
	process, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrProcessNotFound
	}
	return process.Clone()
}

// Delete removes the process.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the ids of all stored processes.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// ScenarioStore implements ports.ScenarioStore in memory.
type ScenarioStore struct {
	data map[string]*domain.Scenario
	mu   sync.RWMutex
}

// NewScenarioStore creates a new in-memory scenario store.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		data: make(map[string]*domain.Scenario),
	}
}

// Add registers a scenario. Scenarios are immutable, so no copy is taken.
func (s *ScenarioStore) Add(scenario *domain.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[scenario.ID] = scenario
}

// Load retrieves a scenario by id.
func (s *ScenarioStore) Load(ctx context.Context, id string) (*domain.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenario, ok := s.data[id]
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	return scenario, nil
}
