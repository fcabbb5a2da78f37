package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// Resolver looks up a base trigger by type key. The manager satisfies it.
type Resolver func(key string) (Trigger, error)

// Sequence folds an ordered list of configured sub-triggers over a seed
// response. Before each sub-trigger call the running response is attached
// to the action as previous_response, so later triggers can reference
// earlier results via projection.
type Sequence struct {
	resolve Resolver
	logger  *slog.Logger
	steps   []Trigger
}

// NewSequence creates the base sequence trigger.
func NewSequence(resolve Resolver, logger *slog.Logger) *Sequence {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sequence{resolve: resolve, logger: logger}
}

// WithConfig builds the configured sub-trigger list from the "triggers"
// setting: an ordered list of settings objects, each declaring its type.
func (t *Sequence) WithConfig(settings map[string]any) (Trigger, error) {
	raw, ok := settings["triggers"].([]any)
	if !ok {
		return nil, &domain.ConfigurationError{Component: "sequence trigger", Reason: "no triggers list configured"}
	}

	out := *t
	out.steps = make([]Trigger, 0, len(raw))
	for i, entry := range raw {
		sub := projection.AsObject(entry)
		key, _ := sub["type"].(string)
		if key == "" {
			if schema, ok := sub["schema"].(string); ok {
				key = TypeFromSchema(schema)
			}
		}
		if key == "" {
			return nil, &domain.ConfigurationError{
				Component: "sequence trigger",
				Reason:    fmt.Sprintf("entry %d declares no type", i),
			}
		}

		base, err := t.resolve(key)
		if err != nil {
			return nil, fmt.Errorf("sequence entry %d: %w", i, err)
		}
		configured, err := base.WithConfig(sub)
		if err != nil {
			return nil, fmt.Errorf("sequence entry %d: %w", i, err)
		}
		out.steps = append(out.steps, configured)
	}
	return &out, nil
}

// Apply runs the sub-triggers left to right. A deferred sub-response aborts
// the remaining sequence and the sequence itself reports deferred.
func (t *Sequence) Apply(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error) {
	if len(t.steps) == 0 {
		return nil, &domain.ConfigurationError{Component: "sequence trigger", Reason: "no triggers configured"}
	}

	running := &domain.Response{Action: action.Key, Key: action.Default()}
	for i, sub := range t.steps {
		chained := action.WithPreviousResponse(running)
		next, err := sub.Apply(ctx, process, chained)
		if err != nil {
			return nil, fmt.Errorf("sequence entry %d: %w", i, err)
		}
		if next == nil {
			t.logger.Debug("sequence deferred", "action", action.Key, "entry", i)
			return nil, nil
		}
		running = next
	}
	return running, nil
}
