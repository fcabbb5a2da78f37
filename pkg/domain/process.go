package domain

import (
	"encoding/json"
	"fmt"
)

// Process is a running instance of a scenario. It is created by the
// instantiator and mutated only by the stepper.
type Process struct {
	ID         string `json:"id" yaml:"id"`
	ScenarioID string `json:"scenario" yaml:"scenario"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`

	// Chain references the event chain (ledger) of this process, if any.
	Chain string `json:"chain,omitempty" yaml:"chain,omitempty"`

	// Actors maps role keys to materialized identities.
	Actors map[string]*Actor `json:"actors" yaml:"actors"`

	// Assets is a free-form key to object store mutated by update
	// instructions.
	Assets map[string]map[string]any `json:"assets" yaml:"assets"`

	// Current is the live state of the process.
	Current *CurrentState `json:"current" yaml:"current"`

	// Previous is the append-only history of accepted responses.
	Previous []*Response `json:"previous" yaml:"previous"`
}

// Actor is a materialized role binding on a process.
type Actor struct {
	Key      string         `json:"key,omitempty" yaml:"key,omitempty"`
	Title    string         `json:"title,omitempty" yaml:"title,omitempty"`
	Identity string         `json:"identity,omitempty" yaml:"identity,omitempty"`
	SignKey  string         `json:"signkey,omitempty" yaml:"signkey,omitempty"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// CurrentState is the resolved live state: its key plus the action and
// transition definitions resolved from the scenario. Terminal markers
// resolve to empty actions and transitions.
type CurrentState struct {
	Key         string             `json:"key" yaml:"key"`
	Actions     map[string]*Action `json:"actions,omitempty" yaml:"actions,omitempty"`
	Transitions []StateTransition  `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Terminal reports whether the process reached a terminal state.
func (p *Process) Terminal() bool {
	return p.Current != nil && IsTerminal(p.Current.Key)
}

// Actor returns the materialized actor for a role key.
func (p *Process) Actor(key string) (*Actor, error) {
	actor, ok := p.Actors[key]
	if !ok {
		return nil, fmt.Errorf("process %s: unknown actor %q", p.ID, key)
	}
	return actor, nil
}

// Clone returns a deep copy of the process. Process documents are
// JSON-shaped by construction, so the copy goes through encoding/json; this
// keeps the stepper all-or-nothing without field-by-field copy code.
func (p *Process) Clone() (*Process, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("clone process %s: %w", p.ID, err)
	}
	var out Process
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone process %s: %w", p.ID, err)
	}
	return &out, nil
}

// Context renders the process as a plain data document for projection and
// condition evaluation (actors, assets, previous, current).
func (p *Process) Context() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("process %s context: %w", p.ID, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("process %s context: %w", p.ID, err)
	}
	return out, nil
}
