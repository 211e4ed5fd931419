package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Fortnight is a half-month payment period (1–15, 16–end of month)
type Fortnight struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PeriodStart    time.Time  `gorm:"type:date;not null;uniqueIndex" json:"period_start"`
	PeriodEnd      time.Time  `gorm:"type:date;not null" json:"period_end"`
	Status         string     `gorm:"size:10;not null;default:DRAFT;index" json:"status"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedByUserID *uint      `json:"closed_by_user_id,omitempty"`
	BankFilePath   *string    `json:"-"`
	BankFileBatch  *string    `gorm:"size:36" json:"bank_file_batch,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Associations
	Totals []FortnightBrokerTotal `gorm:"foreignKey:FortnightID" json:"totals,omitempty"`
}

// TableName specifies the table name for Fortnight
func (Fortnight) TableName() string {
	return "fortnights"
}

// Fortnight status constants
const (
	FortnightStatusDraft = "DRAFT"
	FortnightStatusPaid  = "PAID"
)

// IsDraft returns true while the fortnight accepts imports and discounts
func (f *Fortnight) IsDraft() bool {
	return f.Status == FortnightStatusDraft
}

// MayClose returns true if the fortnight can be paid
func (f *Fortnight) MayClose() bool {
	return f.Status == FortnightStatusDraft
}

// Label renders the period as shown on reports, e.g. "2024-03 Q1"
func (f *Fortnight) Label() string {
	q := "Q1"
	if f.PeriodStart.Day() > 15 {
		q = "Q2"
	}
	return f.PeriodStart.Format("2006-01") + " " + q
}

// FortnightBounds returns the half-month period containing t
func FortnightBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	loc := t.Location()
	if d <= 15 {
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), time.Date(y, m, 15, 0, 0, 0, 0, loc)
	}
	// day 0 of next month is the last day of this one
	return time.Date(y, m, 16, 0, 0, 0, 0, loc), time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
}

// FortnightBrokerTotal is a broker's aggregated amount for one fortnight
type FortnightBrokerTotal struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	FortnightID   uint              `gorm:"not null;uniqueIndex:idx_fortnight_broker" json:"fortnight_id"`
	BrokerID      uint              `gorm:"not null;uniqueIndex:idx_fortnight_broker" json:"broker_id"`
	GrossAmount   decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"gross_amount"`
	DiscountTotal decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"discount_total"`
	NetAmount     decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"net_amount"`
	CodeAmount    decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"code_amount"`
	RetainedIn    decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"retained_in"`
	ItemCount     int               `json:"item_count"`
	Retained      bool              `gorm:"not null;default:false" json:"retained"`
	ByInsurer     datatypes.JSONMap `json:"by_insurer"`
	Discounts     datatypes.JSONMap `json:"discounts"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	// Associations
	Broker *Broker `gorm:"foreignKey:BrokerID" json:"broker,omitempty"`
}

// TableName specifies the table name for FortnightBrokerTotal
func (FortnightBrokerTotal) TableName() string {
	return "fortnight_broker_totals"
}

// AdminDiscount is a labeled deduction an operator applies to a broker in a DRAFT fortnight
type AdminDiscount struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	FortnightID     uint            `gorm:"not null;index" json:"fortnight_id"`
	BrokerID        uint            `gorm:"not null;index" json:"broker_id"`
	Concept         string          `gorm:"not null" json:"concept"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	CreatedByUserID *uint           `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for AdminDiscount
func (AdminDiscount) TableName() string {
	return "admin_discounts"
}
