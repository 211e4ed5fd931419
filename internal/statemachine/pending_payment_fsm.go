package statemachine

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// PendingPaymentFSM wraps a direct advance repayment
type PendingPaymentFSM struct {
	payment *models.PendingPayment
	fsm     *fsm.FSM
}

// NewPendingPaymentFSM creates a new pending payment state machine
func NewPendingPaymentFSM(payment *models.PendingPayment) *PendingPaymentFSM {
	return &PendingPaymentFSM{
		payment: payment,
		fsm: fsm.NewFSM(
			payment.Status,
			fsm.Events{
				{Name: "conciliate", Src: []string{models.PendingPaymentStatusPending}, Dst: models.PendingPaymentStatusConciliated},
				{Name: "deconciliate", Src: []string{models.PendingPaymentStatusConciliated}, Dst: models.PendingPaymentStatusPending},
				{Name: "pay", Src: []string{models.PendingPaymentStatusConciliated}, Dst: models.PendingPaymentStatusPaid},
			},
			fsm.Callbacks{},
		),
	}
}

// Conciliate applies the payment to its advance
func (p *PendingPaymentFSM) Conciliate(ctx context.Context) error {
	next, err := fire(ctx, p.fsm, "conciliate", "pending payment", p.payment.Status, p.payment.MayConciliate())
	if err != nil {
		return err
	}
	p.payment.Status = next
	return nil
}

// Deconciliate detaches the payment from its advance log
func (p *PendingPaymentFSM) Deconciliate(ctx context.Context) error {
	next, err := fire(ctx, p.fsm, "deconciliate", "pending payment", p.payment.Status, p.payment.MayDeconciliate())
	if err != nil {
		return err
	}
	p.payment.Status = next
	p.payment.AdvanceLogID = nil
	return nil
}

// Pay confirms the money was received
func (p *PendingPaymentFSM) Pay(ctx context.Context) error {
	next, err := fire(ctx, p.fsm, "pay", "pending payment", p.payment.Status, p.payment.MayPay())
	if err != nil {
		return err
	}
	p.payment.Status = next
	return nil
}
