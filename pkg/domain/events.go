package domain

import (
	"context"
	"time"
)

// HookEventType defines the category of a lifecycle event.
type HookEventType string

const (
	EventStateEnter       HookEventType = "state_enter"
	EventResponseAccepted HookEventType = "response_accepted"
	EventTriggerInvoked   HookEventType = "trigger_invoked"
)

// HookEventBase contains common fields for all lifecycle events.
type HookEventBase struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      HookEventType `json:"type"`
	ProcessID string        `json:"process_id"`
}

// StateEvent reports a process entering a state.
type StateEvent struct {
	HookEventBase
	StateKey string `json:"state_key"`
	Terminal bool   `json:"terminal,omitempty"`
}

// ResponseEvent reports a response being accepted into the history.
type ResponseEvent struct {
	HookEventBase
	Action string `json:"action"`
	Key    string `json:"key"`
	Actor  string `json:"actor,omitempty"`
}

// TriggerEvent reports a trigger invocation.
type TriggerEvent struct {
	HookEventBase
	Action      string `json:"action"`
	TriggerType string `json:"trigger_type"`
	Deferred    bool   `json:"deferred,omitempty"`
	IsError     bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStateEnter       func(context.Context, *StateEvent)
	OnResponseAccepted func(context.Context, *ResponseEvent)
	OnTriggerInvoked   func(context.Context, *TriggerEvent)
}
