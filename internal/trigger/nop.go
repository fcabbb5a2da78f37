package trigger

import (
	"context"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// nopSettings is the configuration surface of the nop trigger.
type nopSettings struct {
	// Response overrides the key of the produced response.
	Response string `mapstructure:"response"`
	// Projection reshapes the action context before the data field is read.
	Projection string `mapstructure:"projection"`
}

// Nop produces a static response without any external effect. It is used
// for scenario steps that need to advance but have nothing to do.
type Nop struct {
	logger   *slog.Logger
	settings nopSettings
}

// NewNop creates the base nop trigger.
func NewNop(logger *slog.Logger) *Nop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Nop{logger: logger}
}

// WithConfig returns a copy configured with the given settings.
func (t *Nop) WithConfig(settings map[string]any) (Trigger, error) {
	out := *t
	if err := mapstructure.Decode(settings, &out.settings); err != nil {
		return nil, &domain.ConfigurationError{Component: "nop trigger", Reason: "invalid settings", Cause: err}
	}
	return &out, nil
}

// Apply returns a response whose key is the configured response, falling
// back to the action's default response, falling back to "ok". The data
// comes from the (optionally projected) action's data field.
func (t *Nop) Apply(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error) {
	key := t.settings.Response
	if key == "" {
		key = action.Default()
	}

	actx, err := action.Context(process)
	if err != nil {
		return nil, err
	}
	if t.settings.Projection != "" {
		actx, err = projection.ProjectObject(t.settings.Projection, actx)
		if err != nil {
			return nil, &domain.ConfigurationError{Component: "nop trigger", Reason: "projection failed", Cause: err}
		}
	}

	var data map[string]any
	if raw, ok := actx["data"]; ok {
		data = projection.AsObject(raw)
	}

	return &domain.Response{
		Action: action.Key,
		Key:    key,
		Data:   data,
	}, nil
}
