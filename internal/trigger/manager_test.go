package trigger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/internal/trigger"
	"github.com/flowdhq/flowd/pkg/domain"
)

func newManager() *trigger.Manager {
	m := trigger.NewManager()
	m.Register("nop", trigger.NewNop(nil))
	return m
}

func TestTypeFromSchema(t *testing.T) {
	cases := map[string]string{
		"https://specs.example.com/v1/action/http/schema.json#": "http",
		"https://specs.example.com/v1/action/event/schema.json": "event",
		"https://specs.example.com/v1/action/nop/":               "nop",
		"https://specs.example.com/v1/action/sequence":           "sequence",
	}
	for url, want := range cases {
		assert.Equal(t, want, trigger.TypeFromSchema(url), url)
	}
}

func TestManager_ResolveFallsBackToNop(t *testing.T) {
	m := newManager()

	resolved, err := m.Resolve(&domain.Action{Key: "plain"})
	require.NoError(t, err)
	assert.NotNil(t, resolved)
}

func TestManager_ResolveUnknownType(t *testing.T) {
	m := newManager()

	_, err := m.Resolve(&domain.Action{Key: "call", Type: "http"})
	var config *domain.ConfigurationError
	assert.ErrorAs(t, err, &config)
}

func TestManager_EffectiveCachesConfiguredTrigger(t *testing.T) {
	m := newManager()
	action := &domain.Action{
		Key:       "confirm",
		Type:      "nop",
		Trigger:   map[string]any{"response": "error"},
		Responses: []string{"ok", "error"},
	}

	first, err := m.Effective("hiring", action)
	require.NoError(t, err)
	second, err := m.Effective("hiring", action)
	require.NoError(t, err)
	assert.Same(t, first, second, "configuration happens once per scenario and action")

	base, err := m.Base("nop")
	require.NoError(t, err)
	assert.NotSame(t, base, first, "configuration is copy-on-write")
}

func TestManager_InvokeFillsActionAndKey(t *testing.T) {
	m := newManager()
	process := &domain.Process{ID: "p-1", ScenarioID: "hiring"}
	action := &domain.Action{
		Key:       "confirm",
		Type:      "nop",
		Responses: []string{"ok"},
	}

	response, err := m.Invoke(context.Background(), process, action)
	require.NoError(t, err)
	assert.Equal(t, "confirm", response.Action)
	assert.Equal(t, "ok", response.Key)
}

func TestManager_InvokeDetermineResponse(t *testing.T) {
	m := newManager()
	process := &domain.Process{ID: "p-1", ScenarioID: "hiring"}
	action := &domain.Action{
		Key:               "confirm",
		Type:              "nop",
		Responses:         []string{"ok", "escalate"},
		Data:              map[string]any{"severity": "escalate"},
		DetermineResponse: "response.data.severity",
	}

	response, err := m.Invoke(context.Background(), process, action)
	require.NoError(t, err)
	assert.Equal(t, "escalate", response.Key, "determine_response overrides the produced key")
}

func TestManager_InvokeDetermineResponseNonString(t *testing.T) {
	m := newManager()
	process := &domain.Process{ID: "p-1", ScenarioID: "hiring"}
	action := &domain.Action{
		Key:               "confirm",
		Type:              "nop",
		Responses:         []string{"ok"},
		Data:              map[string]any{"severity": float64(3)},
		DetermineResponse: "response.data.severity",
	}

	response, err := m.Invoke(context.Background(), process, action)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Key, "non-string projections leave the key alone")
}

func TestManager_InvokeFiresHook(t *testing.T) {
	var events []*domain.TriggerEvent
	m := trigger.NewManager(trigger.WithHooks(domain.LifecycleHooks{
		OnTriggerInvoked: func(ctx context.Context, event *domain.TriggerEvent) {
			events = append(events, event)
		},
	}))
	m.Register("nop", trigger.NewNop(nil))

	process := &domain.Process{ID: "p-1", ScenarioID: "hiring"}
	_, err := m.Invoke(context.Background(), process, &domain.Action{
		Key: "confirm", Type: "nop", Responses: []string{"ok"},
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "confirm", events[0].Action)
	assert.Equal(t, "nop", events[0].TriggerType)
	assert.False(t, events[0].Deferred)
}
