package statemachine

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// RetainedFSM wraps a retained commission: pending → associated_to_fortnight → paid,
// and associated_to_fortnight → pending when the broker is still held at close
type RetainedFSM struct {
	retained *models.RetainedCommission
	fsm      *fsm.FSM
}

// NewRetainedFSM creates a new retained commission state machine
func NewRetainedFSM(retained *models.RetainedCommission) *RetainedFSM {
	return &RetainedFSM{
		retained: retained,
		fsm: fsm.NewFSM(
			retained.Status,
			fsm.Events{
				{Name: "associate", Src: []string{models.RetainedStatusPending}, Dst: models.RetainedStatusAssociated},
				{Name: "pay", Src: []string{models.RetainedStatusAssociated}, Dst: models.RetainedStatusPaid},
				{Name: "release", Src: []string{models.RetainedStatusAssociated}, Dst: models.RetainedStatusPending},
			},
			fsm.Callbacks{},
		),
	}
}

// Associate attaches the retained amount to a DRAFT fortnight
func (r *RetainedFSM) Associate(ctx context.Context, fortnightID uint) error {
	next, err := fire(ctx, r.fsm, "associate", "retained commission", r.retained.Status, r.retained.MayAssociate())
	if err != nil {
		return err
	}
	r.retained.Status = next
	r.retained.FortnightID = &fortnightID
	return nil
}

// Pay releases the retained amount with its fortnight
func (r *RetainedFSM) Pay(ctx context.Context) error {
	next, err := fire(ctx, r.fsm, "pay", "retained commission", r.retained.Status, r.retained.MayPay())
	if err != nil {
		return err
	}
	r.retained.Status = next
	return nil
}

// Release detaches the amount from its fortnight without paying it
func (r *RetainedFSM) Release(ctx context.Context) error {
	next, err := fire(ctx, r.fsm, "release", "retained commission", r.retained.Status, r.retained.MayRelease())
	if err != nil {
		return err
	}
	r.retained.Status = next
	r.retained.FortnightID = nil
	return nil
}
