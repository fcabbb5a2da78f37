package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/projection"
)

// applyUpdates runs the update instructions declared for the accepted
// (action, response) pair, in declaration order. Later instructions observe
// earlier results. Any failure is fatal for the step.
func applyUpdates(scenario *domain.Scenario, process *domain.Process, response *domain.Response) error {
	def, err := scenario.ResponseDef(response.Action, response.Key)
	if err != nil {
		// Validation already admitted the pair; a scenario without the
		// definition simply declares no updates.
		return nil
	}

	for i, instruction := range def.Update {
		if err := applyUpdate(process, instruction, response); err != nil {
			return fmt.Errorf("update %d of %s: %w", i, response.Ref(), err)
		}
	}
	return nil
}

func applyUpdate(process *domain.Process, instruction *domain.UpdateInstruction, response *domain.Response) error {
	data := any(response.Data)
	if instruction.Projection != "" {
		projected, err := projection.Project(instruction.Projection, response.Data)
		if err != nil {
			return err
		}
		data = projected
	}
	update := projection.AsObject(data)

	mode := projection.ModeReplace
	if instruction.Patch {
		mode = projection.ModePatch
	}

	scope, key, found := strings.Cut(instruction.Select, ".")
	if !found {
		// A bare selector targets an asset.
		scope, key = "assets", instruction.Select
	}

	switch scope {
	case "assets":
		if process.Assets == nil {
			process.Assets = map[string]map[string]any{}
		}
		process.Assets[key] = projection.Patch(process.Assets[key], update, mode)
		return nil

	case "actors":
		actor, err := process.Actor(key)
		if err != nil {
			return err
		}
		return patchActor(actor, update, mode)

	case "current":
		rest := strings.TrimPrefix(key, "actions.")
		action, ok := process.Current.Actions[rest]
		if !ok {
			return fmt.Errorf("no action %q in current state", rest)
		}
		action.Data = projection.Patch(action.Data, update, mode)
		return nil

	default:
		return fmt.Errorf("unsupported update target %q", instruction.Select)
	}
}

// patchActor merges a data object into an actor. Known fields (title,
// identity, signkey) are settable through the document form; everything
// else lands in the actor's data bag.
func patchActor(actor *domain.Actor, update map[string]any, mode projection.Mode) error {
	raw, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("patch actor %s: %w", actor.Key, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("patch actor %s: %w", actor.Key, err)
	}

	known := map[string]bool{"key": true, "title": true, "identity": true, "signkey": true, "data": true}
	fields := map[string]any{}
	extra := map[string]any{}
	for k, v := range update {
		if known[k] {
			fields[k] = v
		} else {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		fields["data"] = extra
	}

	key := actor.Key
	patched := projection.Patch(doc, fields, mode)
	patched["key"] = key

	raw, err = json.Marshal(patched)
	if err != nil {
		return fmt.Errorf("patch actor %s: %w", key, err)
	}
	var out domain.Actor
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("patch actor %s: %w", key, err)
	}
	*actor = out
	return nil
}
