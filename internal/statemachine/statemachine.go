// Package statemachine holds the transition tables for every status-bearing record.
// Each wrapper checks the model's May* guard, fires the looplab/fsm event and copies
// the resulting state back onto the model; persisting it is the caller's job.
package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// ErrTransition is wrapped by every rejected transition
var ErrTransition = errors.New("invalid state transition")

func fire(ctx context.Context, machine *fsm.FSM, event, entity, current string, allowed bool) (string, error) {
	if !allowed {
		return current, fmt.Errorf("%w: %s cannot %s from %s", ErrTransition, entity, event, current)
	}
	if err := machine.Event(ctx, event); err != nil {
		return current, fmt.Errorf("%w: %s %s: %v", ErrTransition, entity, event, err)
	}
	return machine.Current(), nil
}
