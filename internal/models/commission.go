package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InsurerReportImport is one uploaded carrier statement
type InsurerReportImport struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	BatchRef         string          `gorm:"size:36;uniqueIndex;not null" json:"batch_ref"`
	InsurerKey       string          `gorm:"size:30;not null;index" json:"insurer"`
	FortnightID      uint            `gorm:"not null;index" json:"fortnight_id"`
	FileName         string          `json:"file_name"`
	StoragePath      string          `json:"-"`
	IsAgentCode      bool            `gorm:"not null;default:false" json:"is_agent_code"`
	DeclaredTotal    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"declared_total"`
	ComputedTotal    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"computed_total"`
	Variance         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"variance"`
	Status           string          `gorm:"size:20;not null;default:processed;index" json:"status"`
	RowsProcessed    int             `json:"rows_processed"`
	RowsMatched      int             `json:"rows_matched"`
	RowsPending      int             `json:"rows_pending"`
	RowsDuplicated   int             `json:"rows_duplicated"`
	UploadedByUserID *uint           `json:"uploaded_by_user_id,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Associations
	Items []CommissionItem `gorm:"foreignKey:ImportID" json:"items,omitempty"`
}

// TableName specifies the table name for InsurerReportImport
func (InsurerReportImport) TableName() string {
	return "insurer_report_imports"
}

// Import status constants
const (
	ImportStatusProcessed = "processed"
	ImportStatusMismatch  = "mismatch" // accepted, declared total differs beyond tolerance
)

// Reconciled returns true when the computed total matched the declared one
func (i *InsurerReportImport) Reconciled() bool {
	return i.Status == ImportStatusProcessed
}

// CommissionItem is one normalized commission row of an import
type CommissionItem struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	ImportID       uint                `gorm:"not null;index" json:"import_id"`
	FortnightID    uint                `gorm:"not null;index" json:"fortnight_id"`
	InsurerKey     string              `gorm:"size:30;not null;index" json:"insurer"`
	PolicyNumber   string              `gorm:"size:60;index" json:"policy_number"`
	RawIdentifier  string              `gorm:"size:120" json:"raw_identifier"`
	ClientName     string              `json:"client_name"`
	ProductCode    string              `gorm:"size:30" json:"product_code"`
	Section        string              `gorm:"size:40" json:"section,omitempty"`
	AgentCode      string              `gorm:"size:30;index" json:"agent_code,omitempty"`
	IsAssaCode     bool                `gorm:"not null;default:false" json:"is_assa_code"`
	AmountBasis    string              `gorm:"size:12;not null" json:"amount_basis"`
	GrossAmount    decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"gross_amount"`
	BrokerAmount   decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"broker_amount"`
	PercentApplied decimal.NullDecimal `gorm:"type:decimal(5,4)" json:"percent_applied"`
	BrokerID       *uint               `gorm:"index" json:"broker_id,omitempty"`
	PolicyID       *uint               `gorm:"index" json:"policy_id,omitempty"`
	Status         string              `gorm:"size:20;not null;index" json:"status"`
	RowHash        string              `gorm:"size:64;index" json:"-"`
	RawLine        string              `gorm:"type:text" json:"raw_line,omitempty"`
	Metadata       datatypes.JSONMap   `json:"metadata,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	// Associations
	Broker *Broker `gorm:"foreignKey:BrokerID" json:"broker,omitempty"`
}

// TableName specifies the table name for CommissionItem
func (CommissionItem) TableName() string {
	return "commission_items"
}

// Item status constants
const (
	ItemStatusMatched         = "matched"
	ItemStatusPendingIdentify = "pending_identify"
	ItemStatusStaged          = "staged" // resolved by hand, promoted to matched on close
)

// Amount basis constants
const (
	AmountBasisGross     = "GROSS"      // carrier-declared commission, broker share still to compute
	AmountBasisBrokerNet = "BROKER_NET" // already the broker's share
)

// Metadata keys written on items
const (
	MetaBrokerAssignedAfterPeriod = "broker_assigned_after_period"
	MetaResolvedByUserID          = "resolved_by_user_id"
	MetaOverrideID                = "override_id"
)

// CountsForBroker returns true when the item belongs in a broker's fortnight total
func (i *CommissionItem) CountsForBroker() bool {
	return i.BrokerID != nil && i.Status != ItemStatusPendingIdentify
}

// MayResolve returns true if the item can be manually assigned to a broker
func (i *CommissionItem) MayResolve() bool {
	return i.Status == ItemStatusPendingIdentify || i.Status == ItemStatusStaged
}

// SetMeta writes a metadata key, allocating the map on first use
func (i *CommissionItem) SetMeta(key string, value any) {
	if i.Metadata == nil {
		i.Metadata = datatypes.JSONMap{}
	}
	i.Metadata[key] = value
}
