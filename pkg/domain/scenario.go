package domain

import "fmt"

// Scenario is an immutable process template. It is loaded once per process
// instantiation and never mutated by a running process.
type Scenario struct {
	ID          string                    `json:"id" yaml:"id"`
	Title       string                    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Actors      map[string]*ActorDef      `json:"actors" yaml:"actors"`
	Actions     map[string]*ActionDef     `json:"actions" yaml:"actions"`
	States      map[string]*StateDef      `json:"states" yaml:"states"`
	Assets      map[string]map[string]any `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// ActorDef declares a role in a scenario, optionally bound to a signing key.
type ActorDef struct {
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	SignKey string `json:"signkey,omitempty" yaml:"signkey,omitempty"`
}

// ActionDef declares a unit of work available in one or more states.
type ActionDef struct {
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`

	// Actors lists the roles allowed to respond to this action. An action
	// with no actors is a candidate for automatic trigger invocation.
	Actors []string `json:"actors,omitempty" yaml:"actors,omitempty"`

	Responses         map[string]*ResponseDef `json:"responses,omitempty" yaml:"responses,omitempty"`
	DefaultResponse   string                  `json:"default_response,omitempty" yaml:"default_response,omitempty"`
	DetermineResponse string                  `json:"determine_response,omitempty" yaml:"determine_response,omitempty"`

	// Condition gates the availability of the action in a state. It is a
	// projection expression evaluated lazily against the process context.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Trigger holds the per-action trigger settings (type-specific fields
	// such as url, method, headers, body, triggers).
	Trigger map[string]any `json:"trigger,omitempty" yaml:"trigger,omitempty"`

	// Data carries arbitrary fields referenced by projections and triggers.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// ResponseDef declares an allowed response to an action, with optional
// update instructions applied when it is accepted.
type ResponseDef struct {
	Key     string               `json:"key,omitempty" yaml:"key,omitempty"`
	Title   string               `json:"title,omitempty" yaml:"title,omitempty"`
	Update  []*UpdateInstruction `json:"update,omitempty" yaml:"update,omitempty"`
	Display string               `json:"display,omitempty" yaml:"display,omitempty"`
}

// UpdateInstruction selects a target object on the process and merges the
// response data into it.
type UpdateInstruction struct {
	// Select is a dotted path naming the target, e.g. "assets.contract" or
	// "actors.employer".
	Select string `json:"select" yaml:"select"`

	// Patch selects merge semantics. When false the target is replaced
	// wholesale.
	Patch bool `json:"patch,omitempty" yaml:"patch,omitempty"`

	// Projection optionally reshapes the response data before it is applied.
	Projection string `json:"projection,omitempty" yaml:"projection,omitempty"`
}

// StateDef declares a state of the scenario: the actions available in it and
// the ordered transition rules out of it.
type StateDef struct {
	Key         string            `json:"key,omitempty" yaml:"key,omitempty"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Actions     []string          `json:"actions,omitempty" yaml:"actions,omitempty"`
	Transitions []StateTransition `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// State returns the state definition for key.
func (s *Scenario) State(key string) (*StateDef, error) {
	def, ok := s.States[key]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w: state %q", s.ID, ErrStateNotFound, key)
	}
	return def, nil
}

// Action returns the action definition for key.
func (s *Scenario) Action(key string) (*ActionDef, error) {
	def, ok := s.Actions[key]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w: action %q", s.ID, ErrActionNotFound, key)
	}
	return def, nil
}

// ResponseDef returns the response definition for an (action, response) pair.
func (s *Scenario) ResponseDef(actionKey, responseKey string) (*ResponseDef, error) {
	action, err := s.Action(actionKey)
	if err != nil {
		return nil, err
	}
	def, ok := action.Responses[responseKey]
	if !ok {
		return nil, fmt.Errorf("scenario %s: action %q declares no response %q", s.ID, actionKey, responseKey)
	}
	return def, nil
}

// ResponseKeys returns the declared response keys of an action definition.
func (a *ActionDef) ResponseKeys() []string {
	keys := make([]string, 0, len(a.Responses))
	for k := range a.Responses {
		keys = append(keys, k)
	}
	return keys
}

// AllowsActor reports whether the given actor role may respond to the action.
// An empty actor identifies a trigger-produced response and is always allowed.
func (a *ActionDef) AllowsActor(actor string) bool {
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

// Automatic reports whether the action is expected to be driven by its
// trigger rather than by actor interaction.
func (a *ActionDef) Automatic() bool {
	return len(a.Actors) == 0 && (a.Trigger != nil || a.Type != "" || a.Schema != "")
}
