package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProcessNotFound is returned when a process ID cannot be found in the store.
var ErrProcessNotFound = errors.New("process not found")

// ErrScenarioNotFound is returned when a scenario ID cannot be found in the store.
var ErrScenarioNotFound = errors.New("scenario not found")

// ErrChainNotFound is returned when an event chain ID is unknown to the ledger service.
var ErrChainNotFound = errors.New("event chain not found")

// ErrStateNotFound is returned when a scenario does not declare a state key.
var ErrStateNotFound = errors.New("state not found")

// ErrActionNotFound is returned when a scenario does not declare an action key.
var ErrActionNotFound = errors.New("action not found")

// ValidationError reports malformed input to start or step. It is
// user-fixable and carries the full message list.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// InvalidTransitionError reports an action or response that is not allowed
// in the process's current state. The operation aborts before any mutation.
type InvalidTransitionError struct {
	Action   string
	Response string
	Reason   string
}

func (e *InvalidTransitionError) Error() string {
	ref := e.Action
	if e.Response != "" {
		ref += "." + e.Response
	}
	return fmt.Sprintf("invalid transition %s: %s", ref, e.Reason)
}

// ConfigurationError reports a bad trigger or projection configuration, or a
// missing required action field. It is operator-fixable and is raised to the
// caller rather than swallowed.
type ConfigurationError struct {
	Component string
	Reason    string
	Cause     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s configuration: %s", e.Component, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
