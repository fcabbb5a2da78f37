package manager_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/adapters/memory"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/manager"
)

// slowStore adds latency to every operation to provoke races when locking
// is missing.
type slowStore struct {
	data map[string]*domain.Process
	mu   sync.Mutex
}

func (s *slowStore) Save(ctx context.Context, process *domain.Process) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Process)
	}
	copied, err := process.Clone()
	if err != nil {
		return err
	}
	s.data[process.ID] = copied
	return nil
}

func (s *slowStore) Load(ctx context.Context, id string) (*domain.Process, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if process, ok := s.data[id]; ok {
		return process.Clone()
	}
	return nil, domain.ErrProcessNotFound
}

func (s *slowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func newProcess(id string) *domain.Process {
	return &domain.Process{
		ID:         id,
		ScenarioID: "counting",
		Assets:     map[string]map[string]any{"counter": {"value": float64(0)}},
		Current:    &domain.CurrentState{Key: domain.StateInitial},
	}
}

func TestManager_UpdateSerializesReadModifyWrite(t *testing.T) {
	store := &slowStore{}
	mgr := manager.New(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, mgr.Save(ctx, newProcess(id)))

	var wg sync.WaitGroup
	const writers = 10

	// Without per-process locking, concurrent read-modify-write cycles
	// would lose increments.
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Update(ctx, id, func(ctx context.Context, process *domain.Process) error {
				value := process.Assets["counter"]["value"].(float64)
				process.Assets["counter"]["value"] = value + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	process, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(writers), process.Assets["counter"]["value"])
}

func TestManager_UpdateErrorSkipsSave(t *testing.T) {
	mgr := manager.New(memory.NewStore())
	ctx := context.Background()
	id := "no-save"

	require.NoError(t, mgr.Save(ctx, newProcess(id)))

	_, err := mgr.Update(ctx, id, func(ctx context.Context, process *domain.Process) error {
		process.Assets["counter"]["value"] = float64(99)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	process, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(0), process.Assets["counter"]["value"])
}

func TestManager_LoadNotFound(t *testing.T) {
	mgr := manager.New(memory.NewStore())
	_, err := mgr.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProcessNotFound)
}

func TestManager_Delete(t *testing.T) {
	mgr := manager.New(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, newProcess("ephemeral")))
	require.NoError(t, mgr.Delete(ctx, "ephemeral"))

	_, err := mgr.Load(ctx, "ephemeral")
	assert.ErrorIs(t, err, domain.ErrProcessNotFound)
}
