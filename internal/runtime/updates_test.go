package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/internal/runtime"
	"github.com/flowdhq/flowd/pkg/domain"
)

// updateScenario exposes one state with one action so individual update
// instructions can be exercised in isolation.
func updateScenario(updates ...*domain.UpdateInstruction) *domain.Scenario {
	return &domain.Scenario{
		ID: "updating",
		Actors: map[string]*domain.ActorDef{
			"clerk": {Title: "Clerk"},
		},
		Assets: map[string]map[string]any{
			"dossier": {"tags": []any{"draft"}, "meta": map[string]any{"rev": float64(1)}},
		},
		Actions: map[string]*domain.ActionDef{
			"record": {
				Actors: []string{"clerk"},
				Responses: map[string]*domain.ResponseDef{
					"ok": {Update: updates},
				},
			},
		},
		States: map[string]*domain.StateDef{
			domain.StateInitial: {
				Actions: []string{"record"},
				Transitions: []domain.StateTransition{
					{On: "record", Goto: domain.StateSuccess},
				},
			},
		},
	}
}

func stepOnce(t *testing.T, scenario *domain.Scenario, data map[string]any) *domain.Process {
	t.Helper()
	engine := runtime.NewEngine(nil)
	ctx := context.Background()

	process, err := engine.Instantiate(ctx, scenario, runtime.InstantiateOptions{
		Actors: map[string]string{"clerk": "kim"},
	})
	require.NoError(t, err)

	process, err = engine.Step(ctx, scenario, process, &domain.Response{
		Action: "record", Key: "ok", Actor: "clerk", Data: data,
	})
	require.NoError(t, err)
	return process
}

func TestUpdate_PatchMergesAsset(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "assets.dossier", Patch: true})

	process := stepOnce(t, scenario, map[string]any{
		"tags": []any{"final"},
		"meta": map[string]any{"author": "kim"},
	})

	dossier := process.Assets["dossier"]
	assert.Equal(t, []any{"draft", "final"}, dossier["tags"], "arrays concatenate under patch")
	assert.Equal(t, map[string]any{"rev": float64(1), "author": "kim"}, dossier["meta"], "maps merge recursively")
}

func TestUpdate_ReplaceOverwritesAsset(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "assets.dossier"})

	process := stepOnce(t, scenario, map[string]any{"state": "fresh"})

	assert.Equal(t, map[string]any{"state": "fresh"}, process.Assets["dossier"])
}

func TestUpdate_BareSelectTargetsAsset(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "receipt"})

	process := stepOnce(t, scenario, map[string]any{"number": "R-42"})

	assert.Equal(t, "R-42", process.Assets["receipt"]["number"])
}

func TestUpdate_ProjectionReshapesData(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{
		Select:     "assets.dossier",
		Patch:      true,
		Projection: "{total: payload.amount}",
	})

	process := stepOnce(t, scenario, map[string]any{
		"payload": map[string]any{"amount": "99.50", "noise": true},
	})

	dossier := process.Assets["dossier"]
	assert.Equal(t, "99.50", dossier["total"])
	assert.NotContains(t, dossier, "payload")
}

func TestUpdate_ScalarProjectionWrapsUnderValue(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{
		Select:     "receipt",
		Projection: "payload.amount",
	})

	process := stepOnce(t, scenario, map[string]any{
		"payload": map[string]any{"amount": "99.50"},
	})

	assert.Equal(t, "99.50", process.Assets["receipt"]["value"])
}

func TestUpdate_PatchesActor(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "actors.clerk", Patch: true})

	process := stepOnce(t, scenario, map[string]any{
		"identity": "kim@example.org",
		"desk":     "B-12",
	})

	clerk := process.Actors["clerk"]
	assert.Equal(t, "clerk", clerk.Key, "the role key is never overwritten")
	assert.Equal(t, "kim@example.org", clerk.Identity)
	assert.Equal(t, "B-12", clerk.Data["desk"], "unknown fields land in the data bag")
}

func TestUpdate_PatchesCurrentActionData(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "current.actions.record", Patch: true})
	// Keep the process in the same state so the patched action is visible.
	scenario.States[domain.StateInitial].Transitions = nil

	process := stepOnce(t, scenario, map[string]any{"attempts": float64(1)})

	assert.Equal(t, float64(1), process.Current.Actions["record"].Data["attempts"])
}

func TestUpdate_UnknownTargetFailsStep(t *testing.T) {
	scenario := updateScenario(&domain.UpdateInstruction{Select: "ledger.dossier"})
	engine := runtime.NewEngine(nil)
	ctx := context.Background()

	process, err := engine.Instantiate(ctx, scenario, runtime.InstantiateOptions{})
	require.NoError(t, err)

	_, err = engine.Step(ctx, scenario, process, &domain.Response{
		Action: "record", Key: "ok", Actor: "clerk",
	})
	assert.Error(t, err)
	assert.Equal(t, domain.StateInitial, process.Current.Key, "failed steps do not advance the caller's process")
}
