package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdhq/flowd/pkg/domain"
)

func TestIsTerminal(t *testing.T) {
	assert.True(t, domain.IsTerminal(domain.StateSuccess))
	assert.True(t, domain.IsTerminal(domain.StateFailed))
	assert.True(t, domain.IsTerminal(domain.StateCancelled))
	assert.False(t, domain.IsTerminal(domain.StateInitial))
	assert.False(t, domain.IsTerminal("review"))
}

func TestStateTransition_Matches(t *testing.T) {
	cases := []struct {
		on       string
		action   string
		response string
		want     bool
	}{
		{"offer", "offer", "ok", true},
		{"offer", "offer", "retracted", true},
		{"offer.ok", "offer", "ok", true},
		{"offer.ok", "offer", "retracted", false},
		{"offer", "accept", "ok", false},
		{"*", "accept", "ok", true},
		{"*.ok", "accept", "ok", true},
		{"*.ok", "accept", "reject", false},
	}
	for _, tc := range cases {
		transition := domain.StateTransition{On: tc.on}
		assert.Equal(t, tc.want, transition.Matches(tc.action, tc.response),
			"on=%s action=%s response=%s", tc.on, tc.action, tc.response)
	}
}

func TestProcess_Clone(t *testing.T) {
	process := &domain.Process{
		ID:     "p-1",
		Assets: map[string]map[string]any{"contract": {"amount": "42.00"}},
		Actors: map[string]*domain.Actor{"employer": {Key: "employer", Identity: "acme"}},
		Current: &domain.CurrentState{
			Key:     domain.StateInitial,
			Actions: map[string]*domain.Action{"offer": {Key: "offer", Responses: []string{"ok"}}},
		},
	}

	clone, err := process.Clone()
	require.NoError(t, err)

	clone.Assets["contract"]["amount"] = "mutated"
	clone.Actors["employer"].Identity = "other"
	clone.Current.Actions["offer"].Responses[0] = "changed"

	assert.Equal(t, "42.00", process.Assets["contract"]["amount"])
	assert.Equal(t, "acme", process.Actors["employer"].Identity)
	assert.Equal(t, "ok", process.Current.Actions["offer"].Responses[0])
}

func TestAction_Automatic(t *testing.T) {
	assert.False(t, (&domain.Action{Key: "plain"}).Automatic(),
		"an action without trigger, type or schema is not automatic")
	assert.False(t, (&domain.Action{Key: "manual", Actors: []string{"clerk"}, Type: "http"}).Automatic())
	assert.True(t, (&domain.Action{Key: "auto", Type: "http"}).Automatic())
	assert.True(t, (&domain.Action{Key: "auto", Trigger: map[string]any{}}).Automatic())
	assert.True(t, (&domain.Action{Key: "auto", Schema: "https://x/v1/nop/schema.json"}).Automatic())
}

func TestEvent_HashAndVerify(t *testing.T) {
	event := &domain.Event{
		Body:     map[string]any{"kind": "offer"},
		Previous: "abc",
	}
	hash, err := event.ComputeHash()
	require.NoError(t, err)
	event.Hash = hash
	require.NoError(t, event.Verify())

	event.Body["kind"] = "tampered"
	assert.Error(t, event.Verify())
}

func TestEvent_HashCoversPrevious(t *testing.T) {
	a := &domain.Event{Body: map[string]any{"kind": "offer"}, Previous: "h1"}
	b := &domain.Event{Body: map[string]any{"kind": "offer"}, Previous: "h2"}

	hashA, err := a.ComputeHash()
	require.NoError(t, err)
	hashB, err := b.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB)
}
