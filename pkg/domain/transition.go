package domain

import "strings"

// StateTransition defines a rule to move a process to another state.
// Transitions are evaluated in declaration order; the first match whose
// condition is satisfied wins.
type StateTransition struct {
	// On specifies the triggering response as "action" or "action.response".
	// An unqualified action key matches any response to that action, and "*"
	// matches any action.
	On string `json:"on" yaml:"on"`

	// Condition is a projection expression evaluated lazily against the
	// process context. An empty condition is always satisfied.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Goto names the target state key or a terminal marker.
	Goto string `json:"goto" yaml:"goto"`
}

// Matches reports whether the transition's On specifier matches the given
// action and response keys.
func (t StateTransition) Matches(action, response string) bool {
	if t.On == "*" {
		return true
	}
	onAction, onResponse, qualified := strings.Cut(t.On, ".")
	if onAction != "*" && onAction != action {
		return false
	}
	if !qualified {
		return true
	}
	return onResponse == response
}
