/*
Package flowd is a versioned business process engine. Scenarios describe
multi-actor processes as states, actions and responses; the engine
instantiates scenarios into processes, steps them forward as responses
arrive, and fires triggers for automatic actions.

# Concept

A scenario is an immutable, versioned template: actors, actions with typed
responses, states with transition rules. A process is one running instance
of a scenario. Submitting a response to a process applies the response's
update instructions to the process assets and actors, matches a transition
and installs the next state. Actions without actors are automatic: the
engine fires their trigger (http call, event publication, a sequence of
both, or a nop) and feeds the produced response back into the stepper until
a state requires human input or the process terminates.

This hexagonal layout keeps the core free of infrastructure. Stores,
lockers, event chains and the HTTP surface live behind ports with
in-memory, filesystem and Redis adapters.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/flowdhq/flowd"
		"github.com/flowdhq/flowd/pkg/adapters/file"
		"github.com/flowdhq/flowd/pkg/adapters/memory"
		"github.com/flowdhq/flowd/pkg/domain"
	)

	func main() {
		scenarios := file.NewScenarioStore("./scenarios")
		engine := flowd.New(scenarios, memory.NewStore())

		ctx := context.Background()
		process, err := engine.Start(ctx, "hiring", flowd.StartOptions{
			Actors: map[string]string{"employer": "acme"},
		})
		if err != nil {
			log.Fatal(err)
		}

		process, err = engine.Submit(ctx, process.ID, &domain.Response{
			Action: "offer",
			Key:    "ok",
			Actor:  "employer",
			Data:   map[string]any{"amount": "4200.00"},
		})
		if err != nil {
			log.Fatal(err)
		}

		log.Println("state:", process.Current.Key)
	}
*/
package flowd
