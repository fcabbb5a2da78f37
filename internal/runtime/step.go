package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// Step validates a response against the process's current state, applies
// its update instructions, evaluates transitions and follows automatic
// actions until the process waits for external input or terminates.
//
// The input process is never mutated: Step works on a deep copy and returns
// it, so a failed step leaves the caller's process unchanged.
func (e *Engine) Step(ctx context.Context, scenario *domain.Scenario, process *domain.Process, response *domain.Response) (*domain.Process, error) {
	next, err := process.Clone()
	if err != nil {
		return nil, err
	}

	if err := e.apply(ctx, scenario, next, response); err != nil {
		e.observeStep(err, 0)
		return nil, err
	}

	hops, err := e.followAutomatic(ctx, scenario, next)
	if err != nil {
		e.observeStep(err, hops)
		return nil, err
	}

	e.observeStep(nil, hops)
	return next, nil
}

func (e *Engine) observeStep(err error, hops int) {
	result := "ok"
	switch err.(type) {
	case nil:
	case *domain.InvalidTransitionError:
		result = "rejected"
	default:
		result = "failed"
	}
	e.metrics.ObserveStep(result, hops)
}

// followAutomatic invokes the trigger of the current state's automatic
// action and feeds the produced response back into the stepper, repeating
// until the state requires external input, is terminal, or a trigger
// defers. The hop bound guards against non-terminating scenarios.
func (e *Engine) followAutomatic(ctx context.Context, scenario *domain.Scenario, process *domain.Process) (int, error) {
	hops := 0
	for {
		action, ok := automaticAction(process)
		if !ok {
			return hops, nil
		}
		if e.triggers == nil {
			return hops, nil
		}
		if hops >= e.maxHops {
			return hops, &domain.ConfigurationError{
				Component: "stepper",
				Reason: fmt.Sprintf("state %q did not reach a waiting state after %d automatic hops; scenario possibly non-terminating",
					process.Current.Key, e.maxHops),
			}
		}
		hops++

		e.logger.Debug("invoking automatic action",
			"process", process.ID, "state", process.Current.Key, "action", action.Key)

		response, err := e.triggers.Invoke(ctx, process, action)
		if err != nil {
			return hops, err
		}
		if response == nil {
			// Deferred: the eventual response arrives through Step.
			return hops, nil
		}

		if err := e.apply(ctx, scenario, process, response); err != nil {
			return hops, err
		}
	}
}

// apply runs one response through validation, updates, history and
// transition evaluation, mutating the (already cloned) process in place.
func (e *Engine) apply(ctx context.Context, scenario *domain.Scenario, process *domain.Process, response *domain.Response) error {
	action, err := e.validate(process, response)
	if err != nil {
		return err
	}

	accepted := *response
	if accepted.Key == "" {
		accepted.Key = action.Default()
	}
	if accepted.Timestamp.IsZero() {
		accepted.Timestamp = time.Now().UTC()
	}
	if accepted.Display == "" {
		// The display policy comes from the scenario; a caller-supplied value
		// wins. Synthetic keys like "404" have no definition and keep none.
		if def, err := scenario.ResponseDef(accepted.Action, accepted.Key); err == nil {
			accepted.Display = def.Display
		}
	}

	if err := applyUpdates(scenario, process, &accepted); err != nil {
		return err
	}

	process.Previous = append(process.Previous, &accepted)

	if e.hooks.OnResponseAccepted != nil {
		e.hooks.OnResponseAccepted(ctx, &domain.ResponseEvent{
			HookEventBase: domain.HookEventBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.EventResponseAccepted,
				ProcessID: process.ID,
			},
			Action: accepted.Action,
			Key:    accepted.Key,
			Actor:  accepted.Actor,
		})
	}

	target, matched, err := matchTransition(process, &accepted)
	if err != nil {
		return err
	}

	// No transition matching keeps the state, but the resolved action set is
	// refreshed so late-bound availability conditions re-evaluate.
	key := process.Current.Key
	if matched {
		key = target
	}
	current, err := resolveState(scenario, process, key)
	if err != nil {
		return err
	}
	if !matched {
		// The refresh re-evaluates availability only; data patched onto
		// still-available actions survives.
		for actionKey, action := range current.Actions {
			if prev, ok := process.Current.Actions[actionKey]; ok && prev.Data != nil {
				action.Data = prev.Data
			}
		}
	}
	process.Current = current

	if matched {
		e.logger.Debug("state transition",
			"process", process.ID, "response", accepted.Ref(), "state", key)
		if e.hooks.OnStateEnter != nil {
			e.hooks.OnStateEnter(ctx, &domain.StateEvent{
				HookEventBase: domain.HookEventBase{
					Timestamp: time.Now().UTC(),
					Type:      domain.EventStateEnter,
					ProcessID: process.ID,
				},
				StateKey: key,
				Terminal: domain.IsTerminal(key),
			})
		}
	}

	return nil
}

// validate enforces the structural rules of a step: the action must be
// available in the current state, the response key declared, and the actor
// authorized. Violations abort before any mutation.
func (e *Engine) validate(process *domain.Process, response *domain.Response) (*domain.Action, error) {
	if response == nil || response.Action == "" {
		return nil, &domain.ValidationError{Messages: []string{"response has no action"}}
	}
	if process.Terminal() {
		return nil, &domain.InvalidTransitionError{
			Action:   response.Action,
			Response: response.Key,
			Reason:   fmt.Sprintf("process is in terminal state %q", process.Current.Key),
		}
	}

	action, ok := process.Current.Actions[response.Action]
	if !ok {
		return nil, &domain.InvalidTransitionError{
			Action:   response.Action,
			Response: response.Key,
			Reason:   fmt.Sprintf("action not allowed in state %q", process.Current.Key),
		}
	}

	key := response.Key
	if key == "" {
		key = action.Default()
	}
	if !action.AllowsResponse(key) {
		return nil, &domain.InvalidTransitionError{
			Action:   response.Action,
			Response: key,
			Reason:   fmt.Sprintf("response not declared by action %q", response.Action),
		}
	}

	if !action.AllowsActor(response.Actor) {
		return nil, &domain.InvalidTransitionError{
			Action:   response.Action,
			Response: key,
			Reason:   fmt.Sprintf("actor %q not authorized", response.Actor),
		}
	}

	return action, nil
}

// matchTransition evaluates the current transitions in declaration order
// and returns the first matching, satisfied target. Order is the tie-break,
// so selection is deterministic.
func matchTransition(process *domain.Process, response *domain.Response) (string, bool, error) {
	var pctx map[string]any
	for _, transition := range process.Current.Transitions {
		if !transition.Matches(response.Action, response.Key) {
			continue
		}
		if transition.Condition != "" {
			if pctx == nil {
				var err error
				pctx, err = process.Context()
				if err != nil {
					return "", false, err
				}
			}
			satisfied, err := projection.Project(transition.Condition, pctx)
			if err != nil {
				return "", false, &domain.ConfigurationError{
					Component: "scenario",
					Reason:    fmt.Sprintf("transition condition on %q failed", transition.On),
					Cause:     err,
				}
			}
			if !projection.Truthy(satisfied) {
				continue
			}
		}
		return transition.Goto, true, nil
	}
	return "", false, nil
}
