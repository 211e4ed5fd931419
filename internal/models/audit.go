package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // IMPORT, RESOLVE, DISCOUNT, REVERT, CLOSE, ASSOCIATE
	Entity    string    `gorm:"size:50;not null;index:idx_audit_entity" json:"entity"`
	EntityID  uint      `gorm:"index:idx_audit_entity" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditActionImport    = "IMPORT"
	AuditActionResolve   = "RESOLVE"
	AuditActionDiscount  = "DISCOUNT"
	AuditActionRevert    = "REVERT"
	AuditActionClose     = "CLOSE"
	AuditActionAssociate = "ASSOCIATE"
	AuditActionPayment   = "PAYMENT"
)

// All returns every model managed by AutoMigrate
func All() []any {
	return []any{
		&Broker{}, &Client{}, &Policy{}, &CommissionOverride{},
		&Fortnight{}, &InsurerReportImport{}, &CommissionItem{},
		&FortnightBrokerTotal{}, &AdminDiscount{},
		&Advance{}, &AdvanceLog{}, &PendingPayment{},
		&RetainedCommission{}, &AuditLog{},
	}
}
