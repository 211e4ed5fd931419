package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrStaleState is returned when a guarded update finds the row already moved to another state
var ErrStaleState = errors.New("row state changed concurrently")

// PaidPaymentError stops an advance log revert: a direct repayment of the same advance
// is already paid.
type PaidPaymentError struct {
	PaymentID uint
}

func (e *PaidPaymentError) Error() string {
	return fmt.Sprintf("advance has paid payment %d", e.PaymentID)
}

// Repositories holds all repository instances
type Repositories struct {
	Broker         BrokerRepository
	Policy         PolicyRepository
	Fortnight      FortnightRepository
	Import         ImportRepository
	Item           CommissionItemRepository
	Advance        AdvanceRepository
	PendingPayment PendingPaymentRepository
	Retained       RetainedRepository
	Discount       DiscountRepository
	Audit          AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Broker:         NewBrokerRepository(db),
		Policy:         NewPolicyRepository(db),
		Fortnight:      NewFortnightRepository(db),
		Import:         NewImportRepository(db),
		Item:           NewCommissionItemRepository(db),
		Advance:        NewAdvanceRepository(db),
		PendingPayment: NewPendingPaymentRepository(db),
		Retained:       NewRetainedRepository(db),
		Discount:       NewDiscountRepository(db),
		Audit:          NewAuditRepository(db),
	}
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// OrderClause whitelists SortBy against allowed columns, falling back to def
func (q *ListQuery) OrderClause(def string, allowed ...string) string {
	col := def
	for _, a := range allowed {
		if q.SortBy == a {
			col = a
			break
		}
	}
	dir := "ASC"
	if q.SortDir == "desc" {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", col, dir)
}
