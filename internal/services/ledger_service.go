package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/metrics"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/statemachine"
	"github.com/sjperalta/comisiones-api/pkg/logger"
	"gorm.io/gorm"
)

// ApplyDiscountInput withholds part of a broker's fortnight commission to repay an advance
type ApplyDiscountInput struct {
	FortnightID uint
	AdvanceID   uint
	BrokerID    uint // optional; when set the advance must belong to it
	Amount      decimal.Decimal
	PaymentDate *time.Time // defaults to the fortnight's last day
	UserID      uint
}

// AdminDiscountInput is a labeled deduction for one broker in a DRAFT fortnight
type AdminDiscountInput struct {
	FortnightID uint
	BrokerID    uint
	Concept     string
	Amount      decimal.Decimal
	UserID      uint
}

// RegisterPaymentInput is a broker repaying an advance directly
type RegisterPaymentInput struct {
	AdvanceID   uint
	Amount      decimal.Decimal
	PaymentDate time.Time
	Reference   string
	UserID      uint
}

// AssociateResult reports a retained-commission sweep
type AssociateResult struct {
	FortnightID uint  `json:"fortnight_id"`
	Associated  int64 `json:"associated"`
}

// LedgerService manages advance discounts, administrative discounts, direct
// repayments and retained commissions.
type LedgerService struct {
	repos      *repository.Repositories
	aggregator *Aggregator
	locker     cache.Locker
	lockTTL    time.Duration
	auditSvc   *AuditService
	now        func() time.Time
}

func NewLedgerService(repos *repository.Repositories, aggregator *Aggregator, locker cache.Locker, lockTTL time.Duration, auditSvc *AuditService) *LedgerService {
	return &LedgerService{
		repos:      repos,
		aggregator: aggregator,
		locker:     locker,
		lockTTL:    lockTTL,
		auditSvc:   auditSvc,
		now:        time.Now,
	}
}

// Balance returns what the broker still owes on an advance
func (s *LedgerService) Balance(ctx context.Context, advanceID uint) (decimal.Decimal, error) {
	advance, err := s.repos.Advance.FindByID(ctx, advanceID)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	logs, err := s.repos.Advance.ListLogs(ctx, advanceID)
	if err != nil {
		return decimal.Zero, err
	}
	return advance.Balance(logs), nil
}

// ApplyAdvanceDiscount records a repayment withheld from the fortnight. The amount is
// capped at the advance balance and at the commission the broker still has free, so
// neither the balance nor the broker's net ever goes below zero.
func (s *LedgerService) ApplyAdvanceDiscount(ctx context.Context, in ApplyDiscountInput) (*models.AdvanceLog, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var log *models.AdvanceLog
	err := withFortnightLock(ctx, s.locker, in.FortnightID, s.lockTTL, func() error {
		fortnight, err := s.repos.Fortnight.FindByID(ctx, in.FortnightID)
		if err != nil {
			return notFound(err)
		}
		if !fortnight.IsDraft() {
			return ErrInvalidFortnightState
		}

		advance, err := s.repos.Advance.FindByID(ctx, in.AdvanceID)
		if err != nil {
			return notFound(err)
		}
		if in.BrokerID != 0 && advance.BrokerID != in.BrokerID {
			return ErrBrokerMismatch
		}
		logs, err := s.repos.Advance.ListLogs(ctx, advance.ID)
		if err != nil {
			return err
		}
		balance := advance.Balance(logs)
		if !balance.IsPositive() {
			return ErrZeroBalance
		}

		breakdown, err := s.aggregator.Compute(ctx, fortnight.ID)
		if err != nil {
			return err
		}
		available := decimal.Zero
		if bb := breakdown.Broker(advance.BrokerID); bb != nil {
			available = bb.Available()
		}
		if !available.IsPositive() {
			return ErrNoCommissionAvailable
		}

		amount := decimal.Min(in.Amount, balance, available).Round(2)
		paymentDate := fortnight.PeriodEnd
		if in.PaymentDate != nil {
			paymentDate = *in.PaymentDate
		}
		log = &models.AdvanceLog{
			AdvanceID:       advance.ID,
			FortnightID:     &fortnight.ID,
			Amount:          amount,
			PaymentDate:     paymentDate,
			Source:          models.AdvanceLogSourceFortnight,
			CreatedByUserID: userRef(in.UserID),
		}

		if balance.Sub(amount).IsZero() {
			if err := statemachine.NewAdvanceFSM(advance).Settle(ctx); err != nil {
				return transitionError(err)
			}
		}
		if err := s.repos.Advance.ApplyLog(ctx, log, advance); err != nil {
			return err
		}

		if amount.LessThan(in.Amount) {
			logger.Info("Advance discount capped",
				"advance_id", advance.ID, "requested", in.Amount, "applied", amount,
				"balance", balance, "available", available)
		}
		s.auditSvc.Log(ctx, in.UserID, models.AuditActionDiscount, "Advance", advance.ID,
			fmt.Sprintf("Descuento de adelanto aplicado en quincena %s. Monto: %s (solicitado %s)",
				fortnight.Label(), amount.StringFixed(2), in.Amount.StringFixed(2)), "", "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// RevertAdvanceDiscount removes the repayment recorded for an advance on a payment date.
// When a paid direct repayment exists for the same advance the revert is blocked and
// the result names that payment; nothing is changed in that case.
func (s *LedgerService) RevertAdvanceDiscount(ctx context.Context, advanceID uint, paymentDate time.Time, userID uint) (*RevertResult, error) {
	advance, err := s.repos.Advance.FindByID(ctx, advanceID)
	if err != nil {
		return nil, notFound(err)
	}
	log, err := s.repos.Advance.FindLog(ctx, advanceID, paymentDate)
	if err != nil {
		return nil, notFound(err)
	}

	blocked := func(paymentID uint) *RevertResult {
		metrics.AdvanceReverts.WithLabelValues("blocked").Inc()
		logger.Warn("Advance discount revert blocked by paid payment",
			"advance_id", advanceID, "log_id", log.ID, "payment_id", paymentID)
		return &RevertResult{Blocked: true, BlockingPaymentID: &paymentID, AdvanceID: advanceID, LogID: log.ID}
	}

	if paid, err := s.findPaid(ctx, advanceID); err != nil {
		return nil, err
	} else if paid != nil {
		return blocked(paid.ID), nil
	}

	revert := func() error {
		if log.FortnightID != nil {
			fortnight, err := s.repos.Fortnight.FindByID(ctx, *log.FortnightID)
			if err != nil {
				return notFound(err)
			}
			if !fortnight.IsDraft() {
				return ErrInvalidFortnightState
			}
		}

		// a payment may have been confirmed while waiting for the lock
		if paid, err := s.findPaid(ctx, advanceID); err != nil {
			return err
		} else if paid != nil {
			return &repository.PaidPaymentError{PaymentID: paid.ID}
		}

		linked, err := s.repos.PendingPayment.FindByAdvanceLogID(ctx, log.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if linked != nil {
			if !linked.MayDeconciliate() {
				linked = nil
			} else if err := statemachine.NewPendingPaymentFSM(linked).Deconciliate(ctx); err != nil {
				return transitionError(err)
			}
		}

		if err := statemachine.NewAdvanceFSM(advance).Reopen(ctx); err != nil {
			return transitionError(err)
		}
		return s.repos.Advance.RevertLog(ctx, log, advance, linked)
	}

	if log.FortnightID != nil {
		err = withFortnightLock(ctx, s.locker, *log.FortnightID, s.lockTTL, revert)
	} else {
		err = revert()
	}
	var paidErr *repository.PaidPaymentError
	if errors.As(err, &paidErr) {
		return blocked(paidErr.PaymentID), nil
	}
	if err != nil {
		return nil, err
	}

	metrics.AdvanceReverts.WithLabelValues("reverted").Inc()
	s.auditSvc.Log(ctx, userID, models.AuditActionRevert, "Advance", advanceID,
		fmt.Sprintf("Descuento revertido. Fecha de pago: %s, Monto: %s",
			paymentDate.Format("2006-01-02"), log.Amount.StringFixed(2)), "", "")
	return &RevertResult{Reverted: true, AdvanceID: advanceID, LogID: log.ID}, nil
}

// AddAdminDiscount stores a labeled deduction. Like advance discounts it is capped at
// the commission the broker still has free in the fortnight, so the stored amount may
// be lower than requested.
func (s *LedgerService) AddAdminDiscount(ctx context.Context, in AdminDiscountInput) (*models.AdminDiscount, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	discount := &models.AdminDiscount{
		FortnightID:     in.FortnightID,
		BrokerID:        in.BrokerID,
		Concept:         in.Concept,
		CreatedByUserID: userRef(in.UserID),
	}
	err := withFortnightLock(ctx, s.locker, in.FortnightID, s.lockTTL, func() error {
		fortnight, err := s.repos.Fortnight.FindByID(ctx, in.FortnightID)
		if err != nil {
			return notFound(err)
		}
		if !fortnight.IsDraft() {
			return ErrInvalidFortnightState
		}
		if _, err := s.repos.Broker.FindByID(ctx, in.BrokerID); err != nil {
			return notFound(err)
		}

		breakdown, err := s.aggregator.Compute(ctx, fortnight.ID)
		if err != nil {
			return err
		}
		available := decimal.Zero
		if bb := breakdown.Broker(in.BrokerID); bb != nil {
			available = bb.Available()
		}
		if !available.IsPositive() {
			return ErrNoCommissionAvailable
		}

		discount.Amount = decimal.Min(in.Amount, available).Round(2)
		if discount.Amount.LessThan(in.Amount) {
			logger.Info("Administrative discount capped",
				"broker_id", in.BrokerID, "requested", in.Amount, "applied", discount.Amount, "available", available)
		}
		return s.repos.Discount.Create(ctx, discount)
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, in.UserID, models.AuditActionDiscount, "Broker", in.BrokerID,
		fmt.Sprintf("Descuento administrativo: %s, Monto: %s (solicitado %s)",
			in.Concept, discount.Amount.StringFixed(2), in.Amount.StringFixed(2)), "", "")
	return discount, nil
}

// RegisterPayment records a direct repayment awaiting bank confirmation
func (s *LedgerService) RegisterPayment(ctx context.Context, in RegisterPaymentInput) (*models.PendingPayment, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	advance, err := s.repos.Advance.FindByID(ctx, in.AdvanceID)
	if err != nil {
		return nil, notFound(err)
	}
	logs, err := s.repos.Advance.ListLogs(ctx, advance.ID)
	if err != nil {
		return nil, err
	}
	balance := advance.Balance(logs)
	if !balance.IsPositive() {
		return nil, ErrZeroBalance
	}
	if in.Amount.GreaterThan(balance) {
		return nil, ErrAmountExceedsBalance
	}

	payment := &models.PendingPayment{
		AdvanceID:   advance.ID,
		BrokerID:    advance.BrokerID,
		Amount:      in.Amount.Round(2),
		PaymentDate: in.PaymentDate,
		Reference:   in.Reference,
		Status:      models.PendingPaymentStatusPending,
	}
	if err := s.repos.PendingPayment.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, in.UserID, models.AuditActionPayment, "PendingPayment", payment.ID,
		fmt.Sprintf("Abono registrado al adelanto %d. Monto: %s", advance.ID, payment.Amount.StringFixed(2)), "", "")
	return payment, nil
}

// ConciliatePayment applies a registered repayment to its advance
func (s *LedgerService) ConciliatePayment(ctx context.Context, paymentID uint, userID uint) (*models.PendingPayment, error) {
	payment, err := s.repos.PendingPayment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFound(err)
	}
	advance, err := s.repos.Advance.FindByID(ctx, payment.AdvanceID)
	if err != nil {
		return nil, notFound(err)
	}
	logs, err := s.repos.Advance.ListLogs(ctx, advance.ID)
	if err != nil {
		return nil, err
	}
	balance := advance.Balance(logs)
	if payment.Amount.GreaterThan(balance) {
		return nil, ErrAmountExceedsBalance
	}

	if err := statemachine.NewPendingPaymentFSM(payment).Conciliate(ctx); err != nil {
		return nil, transitionError(err)
	}
	if balance.Sub(payment.Amount).IsZero() {
		if err := statemachine.NewAdvanceFSM(advance).Settle(ctx); err != nil {
			return nil, transitionError(err)
		}
	}

	log := &models.AdvanceLog{
		AdvanceID:       advance.ID,
		Amount:          payment.Amount,
		PaymentDate:     payment.PaymentDate,
		Source:          models.AdvanceLogSourcePayment,
		CreatedByUserID: userRef(userID),
	}
	if err := s.repos.PendingPayment.Conciliate(ctx, payment, log, advance); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, userID, models.AuditActionPayment, "PendingPayment", payment.ID,
		fmt.Sprintf("Abono conciliado. Registro de adelanto: %d", log.ID), "", "")
	return payment, nil
}

// PayPayment confirms a conciliated repayment as received
func (s *LedgerService) PayPayment(ctx context.Context, paymentID uint, userID uint) (*models.PendingPayment, error) {
	payment, err := s.repos.PendingPayment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := statemachine.NewPendingPaymentFSM(payment).Pay(ctx); err != nil {
		return nil, transitionError(err)
	}
	now := s.now()
	payment.PaidAt = &now
	if err := s.repos.PendingPayment.MarkPaid(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, fmt.Errorf("%w: el abono cambió de estado", ErrInvalidState)
		}
		return nil, err
	}

	s.auditSvc.Log(ctx, userID, models.AuditActionPayment, "PendingPayment", payment.ID, "Abono marcado como pagado", "", "")
	return payment, nil
}

// AssociateRetained attaches every pending retained commission to a DRAFT fortnight.
// A zero fortnightID picks the oldest DRAFT fortnight.
func (s *LedgerService) AssociateRetained(ctx context.Context, fortnightID uint, userID uint) (*AssociateResult, error) {
	var target *models.Fortnight
	var err error
	if fortnightID != 0 {
		target, err = s.repos.Fortnight.FindByID(ctx, fortnightID)
	} else {
		target, err = s.repos.Fortnight.FindOldestDraft(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDraftFortnight
		}
	}
	if err != nil {
		return nil, notFound(err)
	}

	result := &AssociateResult{FortnightID: target.ID}
	err = withFortnightLock(ctx, s.locker, target.ID, s.lockTTL, func() error {
		current, err := s.repos.Fortnight.FindByID(ctx, target.ID)
		if err != nil {
			return notFound(err)
		}
		if !current.IsDraft() {
			return ErrInvalidFortnightState
		}
		target = current
		pending, err := s.repos.Retained.FindPending(ctx)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(pending))
		for i := range pending {
			r := &pending[i]
			if r.SourceFortnightID == target.ID {
				continue
			}
			if err := statemachine.NewRetainedFSM(r).Associate(ctx, target.ID); err != nil {
				logger.Warn("Skipping retained commission", "retained_id", r.ID, "error", err)
				continue
			}
			ids = append(ids, r.ID)
		}
		n, err := s.repos.Retained.Associate(ctx, ids, target.ID)
		if errors.Is(err, repository.ErrStaleState) {
			return ErrInvalidFortnightState
		}
		if err != nil {
			return err
		}
		result.Associated = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Associated > 0 {
		logger.Info("Retained commissions associated", "fortnight_id", target.ID, "count", result.Associated)
		s.auditSvc.Log(ctx, userID, models.AuditActionAssociate, "Fortnight", target.ID,
			fmt.Sprintf("%d comisiones retenidas asociadas a la quincena %s", result.Associated, target.Label()), "", "")
	}
	return result, nil
}

func (s *LedgerService) findPaid(ctx context.Context, advanceID uint) (*models.PendingPayment, error) {
	paid, err := s.repos.PendingPayment.FindPaidByAdvance(ctx, advanceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return paid, err
}

func transitionError(err error) error {
	if errors.Is(err, statemachine.ErrTransition) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return err
}

func userRef(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
