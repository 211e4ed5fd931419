package repository

import (
	"context"
	"time"

	"github.com/sjperalta/comisiones-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdvanceRepository defines the interface for advance ledger data access
type AdvanceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Advance, error)
	FindPendingByBroker(ctx context.Context, brokerID uint) ([]models.Advance, error)
	Create(ctx context.Context, advance *models.Advance) error
	ListLogs(ctx context.Context, advanceID uint) ([]models.AdvanceLog, error)
	LogsByFortnight(ctx context.Context, fortnightID uint) ([]models.AdvanceLog, error)
	FindLog(ctx context.Context, advanceID uint, paymentDate time.Time) (*models.AdvanceLog, error)
	ApplyLog(ctx context.Context, log *models.AdvanceLog, advance *models.Advance) error
	RevertLog(ctx context.Context, log *models.AdvanceLog, advance *models.Advance, payment *models.PendingPayment) error
}

type advanceRepository struct {
	db *gorm.DB
}

// NewAdvanceRepository creates a new advance repository
func NewAdvanceRepository(db *gorm.DB) AdvanceRepository {
	return &advanceRepository{db: db}
}

func (r *advanceRepository) FindByID(ctx context.Context, id uint) (*models.Advance, error) {
	var advance models.Advance
	if err := r.db.WithContext(ctx).First(&advance, id).Error; err != nil {
		return nil, err
	}
	return &advance, nil
}

func (r *advanceRepository) FindPendingByBroker(ctx context.Context, brokerID uint) ([]models.Advance, error) {
	var advances []models.Advance
	err := r.db.WithContext(ctx).
		Where("broker_id = ? AND status = ?", brokerID, models.AdvanceStatusPending).
		Order("created_at ASC").
		Find(&advances).Error
	return advances, err
}

func (r *advanceRepository) Create(ctx context.Context, advance *models.Advance) error {
	return r.db.WithContext(ctx).Omit("Logs").Create(advance).Error
}

func (r *advanceRepository) ListLogs(ctx context.Context, advanceID uint) ([]models.AdvanceLog, error) {
	var logs []models.AdvanceLog
	err := r.db.WithContext(ctx).
		Where("advance_id = ?", advanceID).
		Order("payment_date ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *advanceRepository) LogsByFortnight(ctx context.Context, fortnightID uint) ([]models.AdvanceLog, error) {
	var logs []models.AdvanceLog
	err := r.db.WithContext(ctx).
		Where("fortnight_id = ?", fortnightID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *advanceRepository) FindLog(ctx context.Context, advanceID uint, paymentDate time.Time) (*models.AdvanceLog, error) {
	var log models.AdvanceLog
	err := r.db.WithContext(ctx).
		Where("advance_id = ? AND payment_date = ?", advanceID, paymentDate).
		Order("id DESC").
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ApplyLog records a repayment and persists the advance status it produced
func (r *advanceRepository) ApplyLog(ctx context.Context, log *models.AdvanceLog, advance *models.Advance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		return tx.Model(&models.Advance{}).Where("id = ?", advance.ID).Update("status", advance.Status).Error
	})
}

// RevertLog removes a repayment. The advance row is locked and a paid repayment of the
// same advance aborts with PaidPaymentError. The linked payment, if any, is detached
// first so the log can be deleted under the foreign key; the advance status is restored last.
func (r *advanceRepository) RevertLog(ctx context.Context, log *models.AdvanceLog, advance *models.Advance, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAdvance(tx, advance.ID); err != nil {
			return err
		}
		var paid models.PendingPayment
		err := tx.Where("advance_id = ? AND status = ?", advance.ID, models.PendingPaymentStatusPaid).
			Order("id ASC").
			Limit(1).
			Find(&paid).Error
		if err != nil {
			return err
		}
		if paid.ID != 0 {
			return &PaidPaymentError{PaymentID: paid.ID}
		}

		if payment != nil {
			if err := tx.Model(&models.PendingPayment{}).
				Where("id = ?", payment.ID).
				Updates(map[string]any{"status": payment.Status, "advance_log_id": nil}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.AdvanceLog{}, log.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Advance{}).Where("id = ?", advance.ID).Update("status", advance.Status).Error
	})
}

func lockAdvance(tx *gorm.DB, id uint) error {
	var locked models.Advance
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked, id).Error
}

// PendingPaymentRepository defines the interface for direct advance repayments
type PendingPaymentRepository interface {
	Create(ctx context.Context, payment *models.PendingPayment) error
	FindByID(ctx context.Context, id uint) (*models.PendingPayment, error)
	FindPaidByAdvance(ctx context.Context, advanceID uint) (*models.PendingPayment, error)
	FindByAdvanceLogID(ctx context.Context, logID uint) (*models.PendingPayment, error)
	Update(ctx context.Context, payment *models.PendingPayment) error
	MarkPaid(ctx context.Context, payment *models.PendingPayment) error
	Conciliate(ctx context.Context, payment *models.PendingPayment, log *models.AdvanceLog, advance *models.Advance) error
}

type pendingPaymentRepository struct {
	db *gorm.DB
}

// NewPendingPaymentRepository creates a new pending payment repository
func NewPendingPaymentRepository(db *gorm.DB) PendingPaymentRepository {
	return &pendingPaymentRepository{db: db}
}

func (r *pendingPaymentRepository) Create(ctx context.Context, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Omit("AdvanceLog").Create(payment).Error
}

func (r *pendingPaymentRepository) FindByID(ctx context.Context, id uint) (*models.PendingPayment, error) {
	var payment models.PendingPayment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *pendingPaymentRepository) FindPaidByAdvance(ctx context.Context, advanceID uint) (*models.PendingPayment, error) {
	var payment models.PendingPayment
	err := r.db.WithContext(ctx).
		Where("advance_id = ? AND status = ?", advanceID, models.PendingPaymentStatusPaid).
		Order("id ASC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *pendingPaymentRepository) FindByAdvanceLogID(ctx context.Context, logID uint) (*models.PendingPayment, error) {
	var payment models.PendingPayment
	err := r.db.WithContext(ctx).Where("advance_log_id = ?", logID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *pendingPaymentRepository) Update(ctx context.Context, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Omit("AdvanceLog").Save(payment).Error
}

// MarkPaid stores a conciliated payment as paid. It takes the advance row lock that
// RevertLog takes, so a revert and a confirmation of the same advance never interleave.
// A payment that already left conciliated yields ErrStaleState.
func (r *pendingPaymentRepository) MarkPaid(ctx context.Context, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAdvance(tx, payment.AdvanceID); err != nil {
			return err
		}
		res := tx.Model(&models.PendingPayment{}).
			Where("id = ? AND status = ?", payment.ID, models.PendingPaymentStatusConciliated).
			Updates(map[string]any{"status": payment.Status, "paid_at": payment.PaidAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStaleState
		}
		return nil
	})
}

// Conciliate applies the payment to its advance: the log is created, referenced by
// the payment, and the advance status stored, all in one transaction.
func (r *pendingPaymentRepository) Conciliate(ctx context.Context, payment *models.PendingPayment, log *models.AdvanceLog, advance *models.Advance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		payment.AdvanceLogID = &log.ID
		if err := tx.Omit("AdvanceLog").Save(payment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Advance{}).Where("id = ?", advance.ID).Update("status", advance.Status).Error
	})
}
