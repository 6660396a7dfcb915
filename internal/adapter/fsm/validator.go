package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator implements domain.TransitionValidator using looplab/fsm.
// Unlike a fixed lifecycle machine, the state set here is dynamic: it
// is the process definition's stage ids, rebuilt per Apply call from
// the definition. The transition graph is complete (any stage can
// move to any other stage, including backward and out of the final
// stage), so the machine's job is resolving the target and rejecting
// stage ids that do not belong to the process.
type Validator struct{}

// New creates a new FSM-backed stage transition validator.
func New() *Validator {
	return &Validator{}
}

const eventPrefix = "move_to:"

// buildEvents declares one event per stage, reachable from every
// stage of the definition.
func buildEvents(def domain.ProcessDefinition) []loopfsm.EventDesc {
	states := make([]string, len(def.Stages))
	for i, s := range def.Stages {
		states[i] = s.ID
	}

	out := make([]loopfsm.EventDesc, 0, len(def.Stages))
	for _, s := range def.Stages {
		out = append(out, loopfsm.EventDesc{
			Name: eventPrefix + s.ID,
			Src:  states,
			Dst:  s.ID,
		})
	}
	return out
}

// Apply checks that targetStageID belongs to the definition and
// returns the resulting stage id. A self-move is legal: quality
// records are sometimes re-stamped on their current stage.
func (v *Validator) Apply(ctx context.Context, def domain.ProcessDefinition, currentStageID, targetStageID string) (string, error) {
	machine := loopfsm.NewFSM(currentStageID, buildEvents(def), nil)

	if err := machine.Event(ctx, eventPrefix+targetStageID); err != nil {
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			// Source equals destination: allowed.
			return targetStageID, nil
		}
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", &domain.UnknownStageError{
				StageID:   targetStageID,
				ProcessID: def.ID,
			}
		}
		return "", err
	}

	return machine.Current(), nil
}
