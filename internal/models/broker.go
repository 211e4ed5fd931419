package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker is an agent who earns a share of carrier commissions
type Broker struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Code           string          `gorm:"size:30;uniqueIndex;not null" json:"code"`
	Name           string          `gorm:"not null" json:"name"`
	AssaCode       *string         `gorm:"size:30;uniqueIndex" json:"assa_code,omitempty"`
	PercentDefault decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0" json:"percent_default"`
	OnHold         bool            `gorm:"not null;default:false" json:"on_hold"`
	Active         bool            `gorm:"not null;default:true" json:"active"`

	// Bank account used by the payment file
	BankName          string `json:"bank_name"`
	BankRouting       string `gorm:"size:20" json:"bank_routing"`
	BankAccountNumber string `gorm:"size:40" json:"bank_account_number"`
	BankAccountType   string `gorm:"size:20" json:"bank_account_type"` // savings, checking

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Broker
func (Broker) TableName() string {
	return "brokers"
}

// Bank account type constants
const (
	AccountTypeSavings  = "savings"
	AccountTypeChecking = "checking"
)

// HasBankAccount reports whether the broker can be paid by transfer
func (b *Broker) HasBankAccount() bool {
	return b.BankRouting != "" && b.BankAccountNumber != ""
}

// Client is the insured party of a policy
type Client struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	NationalID *string   `gorm:"size:40;index" json:"national_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// Policy links a carrier policy number to its client and broker of record
type Policy struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Number           string     `gorm:"size:60;not null;uniqueIndex:idx_policy_insurer_number" json:"number"` // normalized
	InsurerKey       string     `gorm:"size:30;not null;uniqueIndex:idx_policy_insurer_number" json:"insurer"`
	ProductCode      string     `gorm:"size:30" json:"product_code"`
	ClientID         *uint      `gorm:"index" json:"client_id,omitempty"`
	BrokerID         *uint      `gorm:"index" json:"broker_id,omitempty"`
	BrokerAssignedAt *time.Time `json:"broker_assigned_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Broker *Broker `gorm:"foreignKey:BrokerID" json:"broker,omitempty"`
}

// TableName specifies the table name for Policy
func (Policy) TableName() string {
	return "policies"
}

// CommissionOverride replaces a broker's default percent for a carrier and product.
// An empty ProductCode applies to every product of the carrier; a nil BrokerID to every broker.
type CommissionOverride struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InsurerKey  string          `gorm:"size:30;not null;index" json:"insurer"`
	ProductCode string          `gorm:"size:30" json:"product_code"`
	BrokerID    *uint           `gorm:"index" json:"broker_id,omitempty"`
	Percent     decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"percent"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for CommissionOverride
func (CommissionOverride) TableName() string {
	return "commission_overrides"
}

// Specificity ranks overrides so that broker+product beats product beats carrier-wide.
func (o *CommissionOverride) Specificity() int {
	score := 0
	if o.ProductCode != "" {
		score++
	}
	if o.BrokerID != nil {
		score += 2
	}
	return score
}
