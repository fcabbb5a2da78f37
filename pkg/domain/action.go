package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is a resolved action embedded in a process's current state. It is
// derived from the scenario action definition for that state.
type Action struct {
	Key    string `json:"key" yaml:"key"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`

	Actors          []string `json:"actors,omitempty" yaml:"actors,omitempty"`
	Responses       []string `json:"responses,omitempty" yaml:"responses,omitempty"`
	DefaultResponse string   `json:"default_response,omitempty" yaml:"default_response,omitempty"`

	// DetermineResponse optionally projects the produced response's context
	// to compute the effective response key.
	DetermineResponse string `json:"determine_response,omitempty" yaml:"determine_response,omitempty"`

	Trigger map[string]any `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// PreviousResponse carries the running response of a sequence trigger so
	// later sub-triggers can reference earlier results via projection.
	PreviousResponse *Response `json:"previous_response,omitempty" yaml:"previous_response,omitempty"`
}

// AllowsResponse reports whether key is among the action's declared
// responses.
func (a *Action) AllowsResponse(key string) bool {
	for _, k := range a.Responses {
		if k == key {
			return true
		}
	}
	return false
}

// AllowsActor reports whether the given actor role may respond. An empty
// actor identifies a trigger-produced response and is always allowed.
func (a *Action) AllowsActor(actor string) bool {
	if actor == "" {
		return true
	}
	for _, role := range a.Actors {
		if role == actor {
			return true
		}
	}
	return false
}

// Automatic reports whether the action is driven by its trigger rather than
// actor interaction.
func (a *Action) Automatic() bool {
	return len(a.Actors) == 0 && (a.Trigger != nil || a.Type != "" || a.Schema != "")
}

// Default returns the action's default response key, falling back to "ok".
func (a *Action) Default() string {
	if a.DefaultResponse != "" {
		return a.DefaultResponse
	}
	return DefaultResponseKey
}

// WithPreviousResponse returns a copy of the action carrying the given
// running response. The receiver is not mutated.
func (a *Action) WithPreviousResponse(r *Response) *Action {
	out := *a
	out.PreviousResponse = r
	return &out
}

// Context renders the action together with its process as a plain data
// document for projection by triggers. The process document is attached
// under "process".
func (a *Action) Context(p *Process) (map[string]any, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("action %s context: %w", a.Key, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("action %s context: %w", a.Key, err)
	}
	if p != nil {
		pctx, err := p.Context()
		if err != nil {
			return nil, err
		}
		out["process"] = pctx
	}
	return out, nil
}

// Response is an actor's or trigger's answer to an action. Accepted
// responses are appended to the process history and drive transitions.
type Response struct {
	// Action is the key of the action being answered.
	Action string `json:"action" yaml:"action"`

	// Key identifies which declared response this is, e.g. "ok" or "error".
	Key string `json:"key" yaml:"key"`

	// Actor is the role of the responder. Empty for trigger-produced
	// responses.
	Actor string `json:"actor,omitempty" yaml:"actor,omitempty"`

	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Display string         `json:"display,omitempty" yaml:"display,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Ref returns the "action.key" form used by transition specifiers and logs.
func (r *Response) Ref() string {
	return r.Action + "." + r.Key
}
