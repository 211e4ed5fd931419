package statemachine

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// AdvanceFSM wraps an advance: PENDING ↔ PAID
type AdvanceFSM struct {
	advance *models.Advance
	fsm     *fsm.FSM
}

// NewAdvanceFSM creates a new advance state machine
func NewAdvanceFSM(advance *models.Advance) *AdvanceFSM {
	return &AdvanceFSM{
		advance: advance,
		fsm: fsm.NewFSM(
			advance.Status,
			fsm.Events{
				// balance reached zero
				{Name: "settle", Src: []string{models.AdvanceStatusPending}, Dst: models.AdvanceStatusPaid},
				// a repayment was reverted
				{Name: "reopen", Src: []string{models.AdvanceStatusPaid}, Dst: models.AdvanceStatusPending},
			},
			fsm.Callbacks{},
		),
	}
}

// Settle marks the advance as fully repaid
func (a *AdvanceFSM) Settle(ctx context.Context) error {
	next, err := fire(ctx, a.fsm, "settle", "advance", a.advance.Status, a.advance.MaySettle())
	if err != nil {
		return err
	}
	a.advance.Status = next
	return nil
}

// Reopen puts a paid advance back to pending. Reopening a pending advance is a no-op.
func (a *AdvanceFSM) Reopen(ctx context.Context) error {
	if a.advance.Status == models.AdvanceStatusPending {
		return nil
	}
	next, err := fire(ctx, a.fsm, "reopen", "advance", a.advance.Status, a.advance.MayReopen())
	if err != nil {
		return err
	}
	a.advance.Status = next
	return nil
}
