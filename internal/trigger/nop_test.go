package trigger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/internal/trigger"
	"github.com/flowdhq/flowd/pkg/domain"
)

func nopAction() *domain.Action {
	return &domain.Action{
		Key:       "confirm",
		Responses: []string{"ok", "error"},
		Data:      map[string]any{"note": "done"},
	}
}

func TestNop_DefaultResponse(t *testing.T) {
	nop := trigger.NewNop(nil)

	response, err := nop.Apply(context.Background(), &domain.Process{ID: "p-1"}, nopAction())
	require.NoError(t, err)

	assert.Equal(t, "confirm", response.Action)
	assert.Equal(t, "ok", response.Key)
	assert.Equal(t, "done", response.Data["note"])
}

func TestNop_ConfiguredResponseKey(t *testing.T) {
	base := trigger.NewNop(nil)
	configured, err := base.WithConfig(map[string]any{"response": "error"})
	require.NoError(t, err)

	response, err := configured.Apply(context.Background(), &domain.Process{ID: "p-1"}, nopAction())
	require.NoError(t, err)
	assert.Equal(t, "error", response.Key)

	// The base trigger is untouched.
	response, err = base.Apply(context.Background(), &domain.Process{ID: "p-1"}, nopAction())
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Key)
}

func TestNop_ProjectionReshapesData(t *testing.T) {
	base := trigger.NewNop(nil)
	configured, err := base.WithConfig(map[string]any{
		"projection": "{data: {summary: data.note, state: process.current.key}}",
	})
	require.NoError(t, err)

	process := &domain.Process{
		ID:      "p-1",
		Current: &domain.CurrentState{Key: "reviewing"},
	}
	response, err := configured.Apply(context.Background(), process, nopAction())
	require.NoError(t, err)

	assert.Equal(t, "done", response.Data["summary"])
	assert.Equal(t, "reviewing", response.Data["state"])
}

func TestNop_InvalidProjection(t *testing.T) {
	configured, err := trigger.NewNop(nil).WithConfig(map[string]any{"projection": "]["})
	require.NoError(t, err)

	_, err = configured.Apply(context.Background(), &domain.Process{ID: "p-1"}, nopAction())
	var config *domain.ConfigurationError
	assert.ErrorAs(t, err, &config)
}
