package trigger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/ports"
	"github.com/flowdhq/flowd/pkg/projection"
)

// eventSettings is the configuration surface of the event trigger.
type eventSettings struct {
	// Body is the event body, or a list of bodies for multiple events.
	Body any `mapstructure:"body"`
	// Projection reshapes the action context before the body is read.
	Projection string `mapstructure:"projection"`
}

// Event appends signed events to the process's event chain. Each event
// links its predecessor hash to the previous event appended within the same
// call, not only to the chain's pre-call tip.
type Event struct {
	chains   ports.EventChainService
	signer   ports.Signer
	logger   *slog.Logger
	now      func() time.Time
	settings eventSettings
}

// NewEvent creates the base event trigger.
func NewEvent(chains ports.EventChainService, signer ports.Signer, logger *slog.Logger) *Event {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Event{
		chains: chains,
		signer: signer,
		logger: logger,
		now:    time.Now,
	}
}

// WithConfig returns a copy configured with the given settings. The body is
// deep-copied so a reconfigured copy never shares mutable state with the
// receiver.
func (t *Event) WithConfig(settings map[string]any) (Trigger, error) {
	out := *t
	out.settings.Body = projection.CloneValue(t.settings.Body)
	if err := mapstructure.Decode(settings, &out.settings); err != nil {
		return nil, &domain.ConfigurationError{Component: "event trigger", Reason: "invalid settings", Cause: err}
	}
	return &out, nil
}

// Apply constructs, signs and appends one event per body entry. A missing
// body or chain is a configuration error, not a transient failure, and is
// never silently swallowed. A ledger that is unreachable or rejects the
// append is absorbed into a synthetic error response instead, so the
// process history records what was attempted.
func (t *Event) Apply(ctx context.Context, process *domain.Process, action *domain.Action) (*domain.Response, error) {
	if t.chains == nil || t.signer == nil {
		return nil, &domain.ConfigurationError{Component: "event trigger", Reason: "no event chain service or signer wired"}
	}

	source, err := fields(process, action, t.settings.Projection)
	if err != nil {
		return nil, err
	}
	body := t.settings.Body
	if body == nil {
		body = source["body"]
	}
	if body == nil {
		return nil, &domain.ConfigurationError{Component: "event trigger", Reason: fmt.Sprintf("action %q has no body", action.Key)}
	}
	if process.Chain == "" {
		return nil, &domain.ConfigurationError{Component: "event trigger", Reason: fmt.Sprintf("process %s has no chain", process.ID)}
	}

	bodies, multiple, err := eventBodies(body)
	if err != nil {
		return nil, err
	}

	ledger, err := t.chains.Get(ctx, process.Chain)
	if err != nil {
		if errors.Is(err, domain.ErrChainNotFound) {
			return nil, fmt.Errorf("event trigger: %w", err)
		}
		t.logger.Warn("event trigger chain lookup failed",
			"action", action.Key, "chain", process.Chain, "err", err)
		return syntheticError(action, fmt.Sprintf("chain %s unavailable", process.Chain)), nil
	}
	tip, err := ledger.Tip(ctx)
	if err != nil {
		t.logger.Warn("event trigger tip read failed",
			"action", action.Key, "chain", process.Chain, "err", err)
		return syntheticError(action, fmt.Sprintf("chain %s unavailable", process.Chain)), nil
	}

	signKey := base64.StdEncoding.EncodeToString(t.signer.PublicKey())

	previous := tip
	appended := make([]map[string]any, 0, len(bodies))
	for _, entry := range bodies {
		event := &domain.Event{
			Body:      entry,
			Timestamp: t.now().UTC(),
			Previous:  previous,
			SignKey:   signKey,
		}
		hash, err := event.ComputeHash()
		if err != nil {
			return nil, fmt.Errorf("event trigger: %w", err)
		}
		event.Hash = hash

		signature, err := t.signer.Sign([]byte(hash))
		if err != nil {
			return nil, fmt.Errorf("event trigger: sign event: %w", err)
		}
		event.Signature = base64.StdEncoding.EncodeToString(signature)

		if err := ledger.Append(ctx, event); err != nil {
			t.logger.Warn("event trigger append failed",
				"action", action.Key, "chain", process.Chain, "err", err)
			return syntheticError(action, fmt.Sprintf("append to chain %s failed", process.Chain)), nil
		}

		previous = event.Hash
		appended = append(appended, map[string]any{"body": entry, "hash": event.Hash})
	}

	t.logger.Debug("events appended", "chain", process.Chain, "count", len(appended))

	data := map[string]any{}
	if multiple {
		events := make([]any, len(appended))
		for i, e := range appended {
			events[i] = e
		}
		data["events"] = events
	} else {
		data["event"] = appended[0]
	}

	return &domain.Response{Action: action.Key, Key: action.Default(), Data: data}, nil
}

// eventBodies normalizes the configured body into a list of event bodies.
func eventBodies(body any) ([]map[string]any, bool, error) {
	switch v := body.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, false, &domain.ConfigurationError{
					Component: "event trigger",
					Reason:    fmt.Sprintf("body entry %d is not an object", i),
				}
			}
			out = append(out, m)
		}
		if len(out) == 0 {
			return nil, false, &domain.ConfigurationError{Component: "event trigger", Reason: "body list is empty"}
		}
		return out, true, nil
	case map[string]any:
		return []map[string]any{v}, false, nil
	default:
		return nil, false, &domain.ConfigurationError{Component: "event trigger", Reason: "body is not an object or list"}
	}
}
