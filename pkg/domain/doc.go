/*
Package domain contains the core entities of the flowd process engine.

It defines the fundamental building blocks of scenario execution: Scenarios
(immutable templates), Processes (running instances), Actions, Responses and
StateTransitions. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Scenario: an immutable template describing actors, actions and states.
  - Process: a running instance with its own actors, assets and history.
  - Action: a resolved unit of work available in the current state.
  - Response: an actor's or trigger's answer to an action.
  - StateTransition: a rule for moving the process to its next state.
*/
package domain
