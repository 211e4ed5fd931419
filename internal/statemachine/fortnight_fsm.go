package statemachine

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// FortnightFSM wraps a fortnight with its state machine. DRAFT → PAID happens once.
type FortnightFSM struct {
	fortnight *models.Fortnight
	fsm       *fsm.FSM
}

// NewFortnightFSM creates a new fortnight state machine
func NewFortnightFSM(fortnight *models.Fortnight) *FortnightFSM {
	return &FortnightFSM{
		fortnight: fortnight,
		fsm: fsm.NewFSM(
			fortnight.Status,
			fsm.Events{
				{Name: "close", Src: []string{models.FortnightStatusDraft}, Dst: models.FortnightStatusPaid},
			},
			fsm.Callbacks{},
		),
	}
}

// Close transitions the fortnight to PAID
func (f *FortnightFSM) Close(ctx context.Context) error {
	next, err := fire(ctx, f.fsm, "close", "fortnight", f.fortnight.Status, f.fortnight.MayClose())
	if err != nil {
		return err
	}
	f.fortnight.Status = next
	return nil
}

// Current returns the current state
func (f *FortnightFSM) Current() string {
	return f.fsm.Current()
}

// Can checks if a transition is possible
func (f *FortnightFSM) Can(event string) bool {
	return f.fsm.Can(event)
}
