package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/observability"
	"github.com/flowdhq/flowd/pkg/projection"
)

// Manager maps an action's declared schema or type to a configured trigger
// instance. Base triggers are registered once; per-action configurations
// are produced copy-on-write and cached, so one configured trigger is
// safely reused across concurrent invocations.
type Manager struct {
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	metrics *observability.Metrics

	mu         sync.RWMutex
	registry   map[string]Trigger
	configured map[string]Trigger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle callbacks for trigger invocations.
func WithHooks(hooks domain.LifecycleHooks) ManagerOption {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates an empty trigger manager. Base triggers are added with
// Register.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:     logging.NewNop(),
		registry:   make(map[string]Trigger),
		configured: make(map[string]Trigger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register binds a base trigger to a type key or schema URL.
func (m *Manager) Register(key string, t Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[key] = t
}

// Base returns the base trigger for a type key. Satisfies Resolver.
func (m *Manager) Base(key string) (Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.registry[key]
	if !ok {
		return nil, &domain.ConfigurationError{Component: "trigger manager", Reason: fmt.Sprintf("no trigger registered for %q", key)}
	}
	return t, nil
}

// Resolve returns the base trigger for an action, from its declared type or
// schema URL. Actions declaring neither fall back to the nop trigger.
func (m *Manager) Resolve(action *domain.Action) (Trigger, error) {
	return m.Base(typeKey(action))
}

// Effective returns the trigger for an action with the action's trigger
// settings merged in. The configured instance is cached per scenario and
// action; configuration is copy-on-write so the cached value is immutable.
func (m *Manager) Effective(scenarioID string, action *domain.Action) (Trigger, error) {
	cacheKey := scenarioID + "#" + action.Key

	m.mu.RLock()
	cached, ok := m.configured[cacheKey]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}

	base, err := m.Resolve(action)
	if err != nil {
		return nil, err
	}
	effective := base
	if len(action.Trigger) > 0 {
		effective, err = base.WithConfig(action.Trigger)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.configured[cacheKey] = effective
	m.mu.Unlock()
	return effective, nil
}

// Invoke runs the effective trigger for an action. A nil response with nil
// error means the trigger deferred; the eventual response arrives
// out-of-band through the step entry point.
func (m *Manager) Invoke(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error) {
	effective, err := m.Effective(process.ScenarioID, action)
	if err != nil {
		return nil, err
	}

	kind := typeKey(action)
	start := time.Now()
	response, err := effective.Apply(ctx, process, action)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		m.metrics.ObserveTrigger(kind, "failed", elapsed)
	case response == nil:
		m.metrics.ObserveTrigger(kind, "deferred", elapsed)
	default:
		m.metrics.ObserveTrigger(kind, response.Key, elapsed)
	}

	if m.hooks.OnTriggerInvoked != nil {
		m.hooks.OnTriggerInvoked(ctx, &domain.TriggerEvent{
			HookEventBase: domain.HookEventBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.EventTriggerInvoked,
				ProcessID: process.ID,
			},
			Action:      action.Key,
			TriggerType: kind,
			Deferred:    err == nil && response == nil,
			IsError:     err != nil,
		})
	}

	if err != nil {
		return nil, err
	}
	if response == nil {
		m.logger.Debug("trigger deferred", "process", process.ID, "action", action.Key, "type", kind)
		return nil, nil
	}

	if response.Action == "" {
		response.Action = action.Key
	}

	return m.determineResponse(process, action, response)
}

// determineResponse applies the action's determine_response projection, if
// declared, to override the response key from the produced data.
func (m *Manager) determineResponse(process *domain.Process, action *domain.Action, response *domain.Response) (*domain.Response, error) {
	if action.DetermineResponse == "" {
		return response, nil
	}

	actx, err := action.WithPreviousResponse(response).Context(process)
	if err != nil {
		return nil, err
	}
	actx["response"] = map[string]any{"key": response.Key, "data": response.Data}

	determined, err := projection.Project(action.DetermineResponse, actx)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Component: "trigger manager",
			Reason:    fmt.Sprintf("determine_response of action %q failed", action.Key),
			Cause:     err,
		}
	}
	if key, ok := determined.(string); ok && key != "" {
		response.Key = key
	}
	return response, nil
}

// typeKey derives the registry key of an action: its declared type, or the
// type segment of its schema URL, defaulting to nop.
func typeKey(action *domain.Action) string {
	if action.Type != "" {
		return action.Type
	}
	if action.Schema != "" {
		return TypeFromSchema(action.Schema)
	}
	return "nop"
}

// TypeFromSchema extracts the trigger type from a schema URL, e.g.
// "https://specs.example.com/v1/action/http/schema.json#" -> "http".
func TypeFromSchema(url string) string {
	trimmed := strings.TrimSuffix(url, "#")
	trimmed = strings.TrimSuffix(trimmed, "/")
	segments := strings.Split(trimmed, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		if s == "" || s == "schema.json" || s == "schema" {
			continue
		}
		return s
	}
	return ""
}
