package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Advance is money lent to a broker and recovered from later commissions
type Advance struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BrokerID  uint            `gorm:"not null;index" json:"broker_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reason    string          `json:"reason"`
	Status    string          `gorm:"size:10;not null;default:PENDING;index" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Associations
	Logs []AdvanceLog `gorm:"foreignKey:AdvanceID" json:"logs,omitempty"`
}

// TableName specifies the table name for Advance
func (Advance) TableName() string {
	return "advances"
}

// Advance status constants
const (
	AdvanceStatusPending = "PENDING"
	AdvanceStatusPaid    = "PAID"
)

// MaySettle returns true if the advance can be marked as fully repaid
func (a *Advance) MaySettle() bool {
	return a.Status == AdvanceStatusPending
}

// MayReopen returns true if a paid advance can go back to pending
func (a *Advance) MayReopen() bool {
	return a.Status == AdvanceStatusPaid
}

// Balance is the amount minus every applied log, floored at zero
func (a *Advance) Balance(logs []AdvanceLog) decimal.Decimal {
	applied := decimal.Zero
	for _, l := range logs {
		applied = applied.Add(l.Amount)
	}
	bal := a.Amount.Sub(applied)
	if bal.IsNegative() {
		return decimal.Zero
	}
	return bal
}

// AdvanceLog is one repayment applied against an advance
type AdvanceLog struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AdvanceID       uint            `gorm:"not null;index:idx_advance_log_date" json:"advance_id"`
	FortnightID     *uint           `gorm:"index" json:"fortnight_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index:idx_advance_log_date" json:"payment_date"`
	Source          string          `gorm:"size:30;not null" json:"source"`
	CreatedByUserID *uint           `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for AdvanceLog
func (AdvanceLog) TableName() string {
	return "advance_logs"
}

// Advance log sources
const (
	AdvanceLogSourceFortnight = "fortnight_discount"
	AdvanceLogSourcePayment   = "external_payment"
)

// PendingPayment is a broker's direct repayment of an advance awaiting bank confirmation
type PendingPayment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AdvanceID    uint            `gorm:"not null;index" json:"advance_id"`
	AdvanceLogID *uint           `gorm:"index" json:"advance_log_id,omitempty"`
	BrokerID     uint            `gorm:"not null;index" json:"broker_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaymentDate  time.Time       `gorm:"type:date;not null" json:"payment_date"`
	Reference    string          `json:"reference"`
	Status       string          `gorm:"size:15;not null;default:pending;index" json:"status"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Associations
	AdvanceLog *AdvanceLog `gorm:"foreignKey:AdvanceLogID" json:"-"`
}

// TableName specifies the table name for PendingPayment
func (PendingPayment) TableName() string {
	return "pending_payments"
}

// Pending payment status constants
const (
	PendingPaymentStatusPending     = "pending"
	PendingPaymentStatusConciliated = "conciliated"
	PendingPaymentStatusPaid        = "paid"
)

// MayConciliate returns true if the payment can be applied to its advance
func (p *PendingPayment) MayConciliate() bool {
	return p.Status == PendingPaymentStatusPending
}

// MayPay returns true if the payment can be confirmed as received
func (p *PendingPayment) MayPay() bool {
	return p.Status == PendingPaymentStatusConciliated
}

// MayDeconciliate returns true if the applied log can be detached again
func (p *PendingPayment) MayDeconciliate() bool {
	return p.Status == PendingPaymentStatusConciliated
}
