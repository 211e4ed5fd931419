package repository

import (
	"context"
	"time"

	"github.com/sjperalta/comisiones-api/internal/models"
	"gorm.io/gorm"
)

// FortnightRepository defines the interface for fortnight and broker-total data access
type FortnightRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Fortnight, error)
	FindByPeriodStart(ctx context.Context, start time.Time) (*models.Fortnight, error)
	FindOldestDraft(ctx context.Context) (*models.Fortnight, error)
	Create(ctx context.Context, fortnight *models.Fortnight) error
	List(ctx context.Context, query *ListQuery) ([]models.Fortnight, int64, error)
	ListTotals(ctx context.Context, fortnightID uint) ([]models.FortnightBrokerTotal, error)
	ReplaceTotals(ctx context.Context, fortnightID uint, totals []models.FortnightBrokerTotal) error
	Close(ctx context.Context, in *CloseInput) error
}

// CloseInput carries everything persisted atomically when a fortnight is paid
type CloseInput struct {
	FortnightID     uint
	ClosedAt        time.Time
	ClosedByUserID  *uint
	Totals          []models.FortnightBrokerTotal
	StagedItemIDs   []uint
	NewRetained     []models.RetainedCommission
	PaidRetainedIDs []uint
	// associated rows of brokers still held; they return to pending
	ReleasedRetainedIDs []uint
	BankFilePath        string
	BankFileBatch       string
}

type fortnightRepository struct {
	db *gorm.DB
}

// NewFortnightRepository creates a new fortnight repository
func NewFortnightRepository(db *gorm.DB) FortnightRepository {
	return &fortnightRepository{db: db}
}

func (r *fortnightRepository) FindByID(ctx context.Context, id uint) (*models.Fortnight, error) {
	var fortnight models.Fortnight
	if err := r.db.WithContext(ctx).First(&fortnight, id).Error; err != nil {
		return nil, err
	}
	return &fortnight, nil
}

func (r *fortnightRepository) FindByPeriodStart(ctx context.Context, start time.Time) (*models.Fortnight, error) {
	var fortnight models.Fortnight
	err := r.db.WithContext(ctx).Where("period_start = ?", start).First(&fortnight).Error
	if err != nil {
		return nil, err
	}
	return &fortnight, nil
}

func (r *fortnightRepository) FindOldestDraft(ctx context.Context) (*models.Fortnight, error) {
	var fortnight models.Fortnight
	err := r.db.WithContext(ctx).
		Where("status = ?", models.FortnightStatusDraft).
		Order("period_start ASC").
		First(&fortnight).Error
	if err != nil {
		return nil, err
	}
	return &fortnight, nil
}

func (r *fortnightRepository) Create(ctx context.Context, fortnight *models.Fortnight) error {
	return r.db.WithContext(ctx).Create(fortnight).Error
}

func (r *fortnightRepository) List(ctx context.Context, query *ListQuery) ([]models.Fortnight, int64, error) {
	var fortnights []models.Fortnight
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Fortnight{})
	if status := query.Filters["status"]; status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy == "" {
		query.SortDir = "desc"
	}
	err := db.Order(query.OrderClause("period_start", "period_start", "status")).
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&fortnights).Error
	return fortnights, total, err
}

func (r *fortnightRepository) ListTotals(ctx context.Context, fortnightID uint) ([]models.FortnightBrokerTotal, error) {
	var totals []models.FortnightBrokerTotal
	err := r.db.WithContext(ctx).
		Preload("Broker").
		Where("fortnight_id = ?", fortnightID).
		Order("broker_id ASC").
		Find(&totals).Error
	return totals, err
}

// ReplaceTotals swaps the stored totals of a fortnight for a freshly computed set
func (r *fortnightRepository) ReplaceTotals(ctx context.Context, fortnightID uint, totals []models.FortnightBrokerTotal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTotals(tx, fortnightID, totals)
	})
}

func replaceTotals(tx *gorm.DB, fortnightID uint, totals []models.FortnightBrokerTotal) error {
	if err := tx.Where("fortnight_id = ?", fortnightID).Delete(&models.FortnightBrokerTotal{}).Error; err != nil {
		return err
	}
	if len(totals) == 0 {
		return nil
	}
	for i := range totals {
		totals[i].ID = 0
		totals[i].FortnightID = fortnightID
		totals[i].Broker = nil
	}
	return tx.Create(&totals).Error
}

// Close marks the fortnight PAID and persists its final state in one transaction.
// The status update is conditional on DRAFT; a concurrent closer gets ErrStaleState
// and nothing is written.
func (r *fortnightRepository) Close(ctx context.Context, in *CloseInput) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Fortnight{}).
			Where("id = ? AND status = ?", in.FortnightID, models.FortnightStatusDraft).
			Updates(map[string]any{
				"status":            models.FortnightStatusPaid,
				"closed_at":         in.ClosedAt,
				"closed_by_user_id": in.ClosedByUserID,
				"bank_file_path":    in.BankFilePath,
				"bank_file_batch":   in.BankFileBatch,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStaleState
		}

		if err := replaceTotals(tx, in.FortnightID, in.Totals); err != nil {
			return err
		}

		if len(in.StagedItemIDs) > 0 {
			if err := tx.Model(&models.CommissionItem{}).
				Where("id IN ? AND status = ?", in.StagedItemIDs, models.ItemStatusStaged).
				Update("status", models.ItemStatusMatched).Error; err != nil {
				return err
			}
		}

		if len(in.NewRetained) > 0 {
			if err := tx.Create(&in.NewRetained).Error; err != nil {
				return err
			}
		}

		if len(in.ReleasedRetainedIDs) > 0 {
			if err := tx.Model(&models.RetainedCommission{}).
				Where("id IN ? AND status = ?", in.ReleasedRetainedIDs, models.RetainedStatusAssociated).
				Updates(map[string]any{
					"status":       models.RetainedStatusPending,
					"fortnight_id": nil,
				}).Error; err != nil {
				return err
			}
		}

		if len(in.PaidRetainedIDs) > 0 {
			if err := tx.Model(&models.RetainedCommission{}).
				Where("id IN ? AND status = ?", in.PaidRetainedIDs, models.RetainedStatusAssociated).
				Updates(map[string]any{
					"status":  models.RetainedStatusPaid,
					"paid_at": in.ClosedAt,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
