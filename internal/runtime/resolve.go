package runtime

import (
	"fmt"
	"sort"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// resolveState builds the live state for a state key: its actions and
// transitions resolved from the scenario against the process context.
// Terminal markers resolve to an empty action and transition set.
func resolveState(scenario *domain.Scenario, process *domain.Process, key string) (*domain.CurrentState, error) {
	if domain.IsTerminal(key) {
		return &domain.CurrentState{Key: key}, nil
	}

	stateDef, err := scenario.State(key)
	if err != nil {
		return nil, err
	}

	// The context is only needed for availability conditions; build it
	// lazily so condition-free scenarios skip the serialization round trip.
	var pctx map[string]any
	contextOf := func() (map[string]any, error) {
		if pctx == nil {
			pctx, err = process.Context()
			if err != nil {
				return nil, err
			}
		}
		return pctx, nil
	}

	actions := make(map[string]*domain.Action, len(stateDef.Actions))
	for _, actionKey := range stateDef.Actions {
		def, err := scenario.Action(actionKey)
		if err != nil {
			return nil, err
		}

		if def.Condition != "" {
			ctx, err := contextOf()
			if err != nil {
				return nil, err
			}
			available, err := projection.Project(def.Condition, ctx)
			if err != nil {
				return nil, &domain.ConfigurationError{
					Component: "scenario",
					Reason:    fmt.Sprintf("condition of action %q failed", actionKey),
					Cause:     err,
				}
			}
			if !projection.Truthy(available) {
				continue
			}
		}

		actions[actionKey] = resolveAction(actionKey, def)
	}

	transitions := make([]domain.StateTransition, len(stateDef.Transitions))
	copy(transitions, stateDef.Transitions)

	return &domain.CurrentState{
		Key:         key,
		Actions:     actions,
		Transitions: transitions,
	}, nil
}

// resolveAction derives the live action from its scenario definition.
func resolveAction(key string, def *domain.ActionDef) *domain.Action {
	responses := def.ResponseKeys()
	sort.Strings(responses)

	actors := make([]string, len(def.Actors))
	copy(actors, def.Actors)

	// Clone preserves nil: Automatic() distinguishes "no trigger" from an
	// empty configuration.
	var trigger, data map[string]any
	if def.Trigger != nil {
		trigger = projection.Clone(def.Trigger)
	}
	if def.Data != nil {
		data = projection.Clone(def.Data)
	}

	return &domain.Action{
		Key:               key,
		Title:             def.Title,
		Schema:            def.Schema,
		Type:              def.Type,
		Actors:            actors,
		Responses:         responses,
		DefaultResponse:   def.DefaultResponse,
		DetermineResponse: def.DetermineResponse,
		Trigger:           trigger,
		Data:              data,
	}
}

// automaticAction returns the single automatic action of the current state,
// if the state declares exactly one action and that action expects no actor
// interaction.
func automaticAction(process *domain.Process) (*domain.Action, bool) {
	if process.Current == nil || len(process.Current.Actions) != 1 {
		return nil, false
	}
	for _, action := range process.Current.Actions {
		if action.Automatic() {
			return action, true
		}
	}
	return nil, false
}
