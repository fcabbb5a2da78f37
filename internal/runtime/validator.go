package runtime

import (
	"fmt"
	"strings"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// SchemaResolver resolves schema URLs to documents. The schema repository
// satisfies it; nil documents mean "no schema to validate against".
type SchemaResolver interface {
	Get(url string) map[string]any
}

// ValidateScenario checks the structural integrity of a scenario: state and
// action references, transition targets, and the syntax of every declared
// projection expression. When schemas is non-nil, action schema URLs are
// resolved through it so broken references surface before the first
// instantiation.
func ValidateScenario(scenario *domain.Scenario, schemas SchemaResolver) error {
	var messages []string
	report := func(format string, args ...any) {
		messages = append(messages, fmt.Sprintf(format, args...))
	}

	if scenario.ID == "" {
		report("scenario has no id")
	}
	if _, ok := scenario.States[domain.StateInitial]; !ok {
		report("scenario declares no %q state", domain.StateInitial)
	}

	for stateKey, state := range scenario.States {
		if domain.IsTerminal(stateKey) {
			report("state %q uses a reserved terminal marker", stateKey)
			continue
		}
		for _, actionKey := range state.Actions {
			if _, ok := scenario.Actions[actionKey]; !ok {
				report("state %q references unknown action %q", stateKey, actionKey)
			}
		}
		for i, transition := range state.Transitions {
			if transition.Goto == "" {
				report("state %q transition %d has no goto", stateKey, i)
			} else if !domain.IsTerminal(transition.Goto) {
				if _, ok := scenario.States[transition.Goto]; !ok {
					report("state %q transition %d targets unknown state %q", stateKey, i, transition.Goto)
				}
			}
			onAction, _, _ := strings.Cut(transition.On, ".")
			if onAction != "*" {
				if _, ok := scenario.Actions[onAction]; !ok {
					report("state %q transition %d listens on unknown action %q", stateKey, i, onAction)
				}
			}
			if transition.Condition != "" {
				if err := projection.Compile(transition.Condition); err != nil {
					report("state %q transition %d: %v", stateKey, i, err)
				}
			}
		}
	}

	for actionKey, action := range scenario.Actions {
		if action.Condition != "" {
			if err := projection.Compile(action.Condition); err != nil {
				report("action %q: %v", actionKey, err)
			}
		}
		if action.DetermineResponse != "" {
			if err := projection.Compile(action.DetermineResponse); err != nil {
				report("action %q: %v", actionKey, err)
			}
		}
		if action.DefaultResponse != "" {
			if _, ok := action.Responses[action.DefaultResponse]; !ok {
				report("action %q declares unknown default response %q", actionKey, action.DefaultResponse)
			}
		}
		for _, role := range action.Actors {
			if _, ok := scenario.Actors[role]; !ok {
				report("action %q references unknown actor %q", actionKey, role)
			}
		}
		for responseKey, response := range action.Responses {
			for i, update := range response.Update {
				if update.Select == "" {
					report("action %q response %q update %d has no select", actionKey, responseKey, i)
				}
				if update.Projection != "" {
					if err := projection.Compile(update.Projection); err != nil {
						report("action %q response %q update %d: %v", actionKey, responseKey, i, err)
					}
				}
			}
		}
		if schemas != nil && action.Schema != "" {
			if schemas.Get(action.Schema) == nil {
				report("action %q schema %q did not resolve", actionKey, action.Schema)
			}
		}
	}

	if len(messages) > 0 {
		return &domain.ValidationError{Messages: messages}
	}
	return nil
}
