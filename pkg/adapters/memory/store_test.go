package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/adapters/memory"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunProcessStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SaveIsolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	process := &domain.Process{
		ID:      "p-1",
		Assets:  map[string]map[string]any{"contract": {"amount": "42.00"}},
		Current: &domain.CurrentState{Key: domain.StateInitial},
	}
	require.NoError(t, store.Save(ctx, process))

	// Mutating the caller's value after Save must not affect the store.
	process.Assets["contract"]["amount"] = "mutated"

	loaded, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "42.00", loaded.Assets["contract"]["amount"])
}

func TestScenarioStore(t *testing.T) {
	store := memory.NewScenarioStore()
	store.Add(&domain.Scenario{ID: "hiring"})

	scenario, err := store.Load(context.Background(), "hiring")
	require.NoError(t, err)
	assert.Equal(t, "hiring", scenario.ID)

	_, err = store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrScenarioNotFound)
}
