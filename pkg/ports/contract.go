package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/domain"
)

// RunProcessStoreContract runs a suite of tests to verify that a
// ProcessStore implementation adheres to the defined interface contract.
func RunProcessStoreContract(t *testing.T, store ProcessStore) {
	ctx := context.Background()
	id := "contract-test-process-" + time.Now().Format("20060102150405")

	newProcess := func(id string) *domain.Process {
		return &domain.Process{
			ID:         id,
			ScenarioID: "contract-scenario",
			Actors: map[string]*domain.Actor{
				"employer": {Key: "employer", Identity: "acme"},
			},
			Assets: map[string]map[string]any{
				"contract": {"amount": "42.00"},
			},
			Current: &domain.CurrentState{Key: domain.StateInitial},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		process := newProcess(id)

		err := store.Save(ctx, process)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, process.ScenarioID, loaded.ScenarioID)
		assert.Equal(t, domain.StateInitial, loaded.Current.Key)
		assert.Equal(t, "acme", loaded.Actors["employer"].Identity)
		assert.Equal(t, "42.00", loaded.Assets["contract"]["amount"])
	})

	t.Run("Load Isolation", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)

		// Mutating a loaded copy must not leak into the store.
		loaded.Assets["contract"]["amount"] = "mutated"

		reloaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "42.00", reloaded.Assets["contract"]["amount"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrProcessNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newProcess(id))
		require.NoError(t, err)

		err = store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrProcessNotFound, "Load after Delete should return ErrProcessNotFound")
	})
}
