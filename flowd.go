package flowd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/internal/runtime"
	"github.com/flowdhq/flowd/internal/trigger"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/manager"
	"github.com/flowdhq/flowd/pkg/observability"
	"github.com/flowdhq/flowd/pkg/ports"
	"github.com/flowdhq/flowd/pkg/schema"
)

// Engine is the high-level entry point for the flowd library. It wires the
// scenario store, the process manager, the trigger subsystem and the step
// runtime behind a small API that servers and CLIs consume.
type Engine struct {
	scenarios ports.ScenarioStore
	processes *manager.Manager
	runtime   *runtime.Engine
	triggers  *trigger.Manager

	schemas    *schema.Repository
	chains     ports.EventChainService
	signer     ports.Signer
	httpClient ports.HTTPDoer
	locker     ports.ProcessLocker
	metrics    *observability.Metrics
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	maxHops    int
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for the engine and its subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLocker enables distributed locking for process steps.
func WithLocker(locker ports.ProcessLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithHTTPClient overrides the client used by http triggers.
func WithHTTPClient(client ports.HTTPDoer) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithChainService wires the event chain backend used by event triggers.
func WithChainService(chains ports.EventChainService) Option {
	return func(e *Engine) {
		e.chains = chains
	}
}

// WithSigner wires the signing identity used by event triggers.
func WithSigner(signer ports.Signer) Option {
	return func(e *Engine) {
		e.signer = signer
	}
}

// WithSchemaRepository wires a schema repository used for scenario
// validation.
func WithSchemaRepository(schemas *schema.Repository) Option {
	return func(e *Engine) {
		e.schemas = schemas
	}
}

// WithMetrics registers Prometheus metrics for steps and triggers.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxAutomaticHops bounds automatic trigger chains per submitted
// response.
func WithMaxAutomaticHops(n int) Option {
	return func(e *Engine) {
		e.maxHops = n
	}
}

// New initializes an Engine over the given scenario and process stores.
func New(scenarios ports.ScenarioStore, store ports.ProcessStore, opts ...Option) *Engine {
	e := &Engine{
		scenarios: scenarios,
		maxHops:   runtime.DefaultMaxAutomaticHops,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	e.triggers = trigger.NewManager(
		trigger.WithLogger(e.logger),
		trigger.WithHooks(e.hooks),
		trigger.WithMetrics(e.metrics),
	)
	e.triggers.Register("nop", trigger.NewNop(e.logger))
	e.triggers.Register("http", trigger.NewHTTP(e.httpClient, e.logger))
	e.triggers.Register("event", trigger.NewEvent(e.chains, e.signer, e.logger))
	e.triggers.Register("sequence", trigger.NewSequence(e.triggers.Base, e.logger))

	e.runtime = runtime.NewEngine(e.triggers,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMetrics(e.metrics),
		runtime.WithMaxAutomaticHops(e.maxHops),
	)

	managerOpts := []manager.Option{manager.WithLogger(e.logger)}
	if e.locker != nil {
		managerOpts = append(managerOpts, manager.WithLocker(e.locker))
	}
	e.processes = manager.New(store, managerOpts...)

	return e
}

// StartOptions configures process instantiation.
type StartOptions struct {
	// ID overrides the generated process id.
	ID string
	// Chain attaches an event chain id for event triggers.
	Chain string
	// Actors maps actor roles declared by the scenario to identities.
	Actors map[string]string
}

// Start instantiates a new process from a scenario and persists it. When
// the initial state carries an automatic action its trigger chain runs
// before the process is first saved.
func (e *Engine) Start(ctx context.Context, scenarioID string, opts StartOptions) (*domain.Process, error) {
	scenario, err := e.scenarios.Load(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	process, err := e.runtime.Instantiate(ctx, scenario, runtime.InstantiateOptions{
		ID:     opts.ID,
		Chain:  opts.Chain,
		Actors: opts.Actors,
	})
	if err != nil {
		return nil, err
	}

	if err := e.processes.Save(ctx, process); err != nil {
		return nil, fmt.Errorf("save process %s: %w", process.ID, err)
	}
	return process, nil
}

// Submit applies a response to a process. The step runs under the process
// lock; the stored process only advances when the whole step succeeds.
func (e *Engine) Submit(ctx context.Context, processID string, response *domain.Response) (*domain.Process, error) {
	if response == nil || response.Action == "" {
		return nil, &domain.ValidationError{Messages: []string{"response must name an action"}}
	}

	var stepped *domain.Process
	err := e.processes.WithLock(ctx, processID, func(ctx context.Context) error {
		process, err := e.processes.Store().Load(ctx, processID)
		if err != nil {
			return err
		}
		scenario, err := e.scenarios.Load(ctx, process.ScenarioID)
		if err != nil {
			return err
		}

		stepped, err = e.runtime.Step(ctx, scenario, process, response)
		if err != nil {
			return err
		}
		return e.processes.Store().Save(ctx, stepped)
	})
	if err != nil {
		return nil, err
	}
	return stepped, nil
}

// Invoke manually fires the trigger of an action available in the current
// state and submits its response. An empty action key invokes the default
// action: the single action available in the current state. A deferred
// trigger leaves the process untouched; the response is expected to arrive
// later via Submit.
func (e *Engine) Invoke(ctx context.Context, processID, actionKey string) (*domain.Process, error) {
	var result *domain.Process
	err := e.processes.WithLock(ctx, processID, func(ctx context.Context) error {
		process, err := e.processes.Store().Load(ctx, processID)
		if err != nil {
			return err
		}

		if actionKey == "" {
			actionKey, err = defaultActionKey(process)
			if err != nil {
				return err
			}
		}

		action, ok := process.Current.Actions[actionKey]
		if !ok {
			return &domain.InvalidTransitionError{
				Action: actionKey,
				Reason: fmt.Sprintf("action not available in state %q", process.Current.Key),
			}
		}

		response, err := e.triggers.Invoke(ctx, process, action)
		if err != nil {
			return err
		}
		if response == nil {
			result = process
			return nil
		}

		scenario, err := e.scenarios.Load(ctx, process.ScenarioID)
		if err != nil {
			return err
		}
		result, err = e.runtime.Step(ctx, scenario, process, response)
		if err != nil {
			return err
		}
		return e.processes.Store().Save(ctx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// defaultActionKey resolves the action to invoke when none is named. It is
// only unambiguous when the current state offers exactly one action.
func defaultActionKey(process *domain.Process) (string, error) {
	if len(process.Current.Actions) == 1 {
		for key := range process.Current.Actions {
			return key, nil
		}
	}
	return "", &domain.InvalidTransitionError{
		Reason: fmt.Sprintf("state %q offers %d actions, name the one to invoke",
			process.Current.Key, len(process.Current.Actions)),
	}
}

// GetProcess retrieves a process by id.
func (e *Engine) GetProcess(ctx context.Context, processID string) (*domain.Process, error) {
	return e.processes.Load(ctx, processID)
}

// GetScenario retrieves a scenario by id.
func (e *Engine) GetScenario(ctx context.Context, scenarioID string) (*domain.Scenario, error) {
	return e.scenarios.Load(ctx, scenarioID)
}

// ValidateScenario checks a stored scenario for structural problems,
// resolving schema references when a schema repository is configured.
func (e *Engine) ValidateScenario(ctx context.Context, scenarioID string) error {
	scenario, err := e.scenarios.Load(ctx, scenarioID)
	if err != nil {
		return err
	}
	var resolver runtime.SchemaResolver
	if e.schemas != nil {
		resolver = e.schemas
	}
	return runtime.ValidateScenario(scenario, resolver)
}

// Processes returns the process manager, for callers that need direct
// store access under the process lock.
func (e *Engine) Processes() *manager.Manager {
	return e.processes
}
