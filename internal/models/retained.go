package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RetainedCommission is a broker net withheld at close and paid in a later fortnight
type RetainedCommission struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	BrokerID          uint            `gorm:"not null;index" json:"broker_id"`
	SourceFortnightID uint            `gorm:"not null;index" json:"source_fortnight_id"`
	FortnightID       *uint           `gorm:"index" json:"fortnight_id,omitempty"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Reason            string          `json:"reason"`
	Status            string          `gorm:"size:30;not null;default:pending;index" json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for RetainedCommission
func (RetainedCommission) TableName() string {
	return "retained_commissions"
}

// Retained commission status constants
const (
	RetainedStatusPending    = "pending"
	RetainedStatusAssociated = "associated_to_fortnight"
	RetainedStatusPaid       = "paid"
)

// MayAssociate returns true if the retained amount can be attached to a fortnight
func (r *RetainedCommission) MayAssociate() bool {
	return r.Status == RetainedStatusPending
}

// MayPay returns true if the retained amount can be released
func (r *RetainedCommission) MayPay() bool {
	return r.Status == RetainedStatusAssociated && r.FortnightID != nil
}

// MayRelease returns true if an associated amount can go back to pending
func (r *RetainedCommission) MayRelease() bool {
	return r.Status == RetainedStatusAssociated
}
