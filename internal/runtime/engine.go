// Package runtime implements the state-transition algorithm of the flowd
// engine: response validation, update instructions, transition evaluation
// and the automatic-action loop.
package runtime

import (
	"context"
	"log/slog"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/observability"
)

// DefaultMaxAutomaticHops bounds the automatic-action loop. A scenario
// needing more hops in a single step is considered non-terminating.
const DefaultMaxAutomaticHops = 16

// TriggerInvoker runs the trigger of an action. The trigger manager
// satisfies it; a nil response with nil error means deferred.
type TriggerInvoker interface {
	Invoke(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error)
}

// Engine is the core stepper. It is stateless with respect to processes:
// every operation takes the scenario and process explicitly and returns a
// new process value, leaving the input untouched on failure.
type Engine struct {
	triggers TriggerInvoker
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	metrics  *observability.Metrics
	maxHops  int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithMaxAutomaticHops overrides the automatic-action loop bound.
func WithMaxAutomaticHops(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// NewEngine creates a stepper. triggers may be nil for scenarios without
// automatic actions.
func NewEngine(triggers TriggerInvoker, opts ...EngineOption) *Engine {
	e := &Engine{
		triggers: triggers,
		logger:   logging.NewNop(),
		maxHops:  DefaultMaxAutomaticHops,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
