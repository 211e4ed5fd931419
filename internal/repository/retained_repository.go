package repository

import (
	"context"

	"github.com/sjperalta/comisiones-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RetainedRepository defines the interface for retained commission data access
type RetainedRepository interface {
	Create(ctx context.Context, retained *models.RetainedCommission) error
	FindByID(ctx context.Context, id uint) (*models.RetainedCommission, error)
	FindPending(ctx context.Context) ([]models.RetainedCommission, error)
	FindAssociated(ctx context.Context, fortnightID uint) ([]models.RetainedCommission, error)
	Associate(ctx context.Context, ids []uint, fortnightID uint) (int64, error)
}

type retainedRepository struct {
	db *gorm.DB
}

// NewRetainedRepository creates a new retained commission repository
func NewRetainedRepository(db *gorm.DB) RetainedRepository {
	return &retainedRepository{db: db}
}

func (r *retainedRepository) Create(ctx context.Context, retained *models.RetainedCommission) error {
	return r.db.WithContext(ctx).Create(retained).Error
}

func (r *retainedRepository) FindByID(ctx context.Context, id uint) (*models.RetainedCommission, error) {
	var retained models.RetainedCommission
	if err := r.db.WithContext(ctx).First(&retained, id).Error; err != nil {
		return nil, err
	}
	return &retained, nil
}

func (r *retainedRepository) FindPending(ctx context.Context) ([]models.RetainedCommission, error) {
	var retained []models.RetainedCommission
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RetainedStatusPending).
		Order("id ASC").
		Find(&retained).Error
	return retained, err
}

func (r *retainedRepository) FindAssociated(ctx context.Context, fortnightID uint) ([]models.RetainedCommission, error) {
	var retained []models.RetainedCommission
	err := r.db.WithContext(ctx).
		Where("fortnight_id = ? AND status IN ?", fortnightID,
			[]string{models.RetainedStatusAssociated, models.RetainedStatusPaid}).
		Order("broker_id ASC, id ASC").
		Find(&retained).Error
	return retained, err
}

// Associate attaches pending rows to a fortnight. Rows that left pending meanwhile are
// skipped. A target fortnight that is no longer DRAFT yields ErrStaleState and nothing
// is written.
func (r *retainedRepository) Associate(ctx context.Context, ids []uint, fortnightID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Fortnight
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", fortnightID, models.FortnightStatusDraft).
			Limit(1).
			Find(&target).Error; err != nil {
			return err
		}
		if target.ID == 0 {
			return ErrStaleState
		}
		res := tx.Model(&models.RetainedCommission{}).
			Where("id IN ? AND status = ?", ids, models.RetainedStatusPending).
			Updates(map[string]any{
				"status":       models.RetainedStatusAssociated,
				"fortnight_id": fortnightID,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// DiscountRepository defines the interface for administrative discounts
type DiscountRepository interface {
	Create(ctx context.Context, discount *models.AdminDiscount) error
	ListByFortnight(ctx context.Context, fortnightID uint) ([]models.AdminDiscount, error)
}

type discountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) Create(ctx context.Context, discount *models.AdminDiscount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

func (r *discountRepository) ListByFortnight(ctx context.Context, fortnightID uint) ([]models.AdminDiscount, error) {
	var discounts []models.AdminDiscount
	err := r.db.WithContext(ctx).Where("fortnight_id = ?", fortnightID).Order("id ASC").Find(&discounts).Error
	return discounts, err
}

// AuditRepository defines the interface for the audit trail
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if entity := query.Filters["entity"]; entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if action := query.Filters["action"]; action != "" {
		db = db.Where("action = ?", action)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC, id DESC").Offset(query.Offset()).Limit(query.PerPage).Find(&logs).Error
	return logs, total, err
}
