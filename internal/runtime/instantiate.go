package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// InstantiateOptions carries the per-instance bindings of a new process.
type InstantiateOptions struct {
	// ID overrides the generated process id.
	ID string
	// Chain binds the process to an event chain.
	Chain string
	// Actors maps role keys to identities. Every key must be a declared
	// scenario role; roles without an entry stay unbound.
	Actors map[string]string
}

// Instantiate creates a process from a scenario: materialized actors,
// seeded assets and the resolved initial state. Automatic actions of the
// initial state are followed immediately, so the returned process is
// already waiting for external input (or terminal).
func (e *Engine) Instantiate(ctx context.Context, scenario *domain.Scenario, opts InstantiateOptions) (*domain.Process, error) {
	if _, ok := scenario.States[domain.StateInitial]; !ok {
		return nil, &domain.ValidationError{
			Messages: []string{fmt.Sprintf("scenario %s declares no %q state", scenario.ID, domain.StateInitial)},
		}
	}
	for role := range opts.Actors {
		if _, ok := scenario.Actors[role]; !ok {
			return nil, &domain.ValidationError{
				Messages: []string{fmt.Sprintf("scenario %s declares no actor %q", scenario.ID, role)},
			}
		}
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	actors := make(map[string]*domain.Actor, len(scenario.Actors))
	for role, def := range scenario.Actors {
		actors[role] = &domain.Actor{
			Key:      role,
			Title:    def.Title,
			SignKey:  def.SignKey,
			Identity: opts.Actors[role],
		}
	}

	assets := make(map[string]map[string]any, len(scenario.Assets))
	for key, seed := range scenario.Assets {
		assets[key] = projection.Clone(seed)
	}

	process := &domain.Process{
		ID:         id,
		ScenarioID: scenario.ID,
		Title:      scenario.Title,
		Chain:      opts.Chain,
		Actors:     actors,
		Assets:     assets,
	}

	current, err := resolveState(scenario, process, domain.StateInitial)
	if err != nil {
		return nil, err
	}
	process.Current = current

	if e.hooks.OnStateEnter != nil {
		e.hooks.OnStateEnter(ctx, &domain.StateEvent{
			HookEventBase: domain.HookEventBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.EventStateEnter,
				ProcessID: process.ID,
			},
			StateKey: domain.StateInitial,
		})
	}

	e.logger.Info("process instantiated", "process", id, "scenario", scenario.ID)

	if _, err := e.followAutomatic(ctx, scenario, process); err != nil {
		return nil, err
	}

	return process, nil
}
