// Package trigger implements the trigger-dispatch subsystem: the manager
// that maps action types to trigger instances, and the trigger variants
// (nop, http, event, sequence) that autonomously produce responses.
package trigger

import (
	"context"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// Trigger autonomously produces a response for an action. A nil response
// with a nil error means the trigger started deferred work and the eventual
// response will arrive out-of-band.
//
// Trigger values are immutable: WithConfig returns a configured copy and
// never mutates the receiver, so one configured trigger can be shared
// across concurrent invocations without locks.
type Trigger interface {
	Apply(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error)
	WithConfig(settings map[string]any) (Trigger, error)
}

// fields returns the data fields the trigger reads request parameters from:
// the action's data, or the projected action context when a projection is
// configured.
func fields(process *domain.Process, action *domain.Action, expression string) (map[string]any, error) {
	if expression == "" {
		if action.Data == nil {
			return map[string]any{}, nil
		}
		return action.Data, nil
	}
	actx, err := action.Context(process)
	if err != nil {
		return nil, err
	}
	projected, err := projection.ProjectObject(expression, actx)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "trigger projection", Reason: "projection failed", Cause: err}
	}
	return projected, nil
}
