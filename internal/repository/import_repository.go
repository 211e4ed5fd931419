package repository

import (
	"context"

	"github.com/sjperalta/comisiones-api/internal/models"
	"gorm.io/gorm"
)

// ImportRepository defines the interface for statement import data access
type ImportRepository interface {
	CreateWithItems(ctx context.Context, imp *models.InsurerReportImport, items []models.CommissionItem) error
	FindByID(ctx context.Context, id uint) (*models.InsurerReportImport, error)
	ListByFortnight(ctx context.Context, fortnightID uint) ([]models.InsurerReportImport, error)
}

type importRepository struct {
	db *gorm.DB
}

// NewImportRepository creates a new import repository
func NewImportRepository(db *gorm.DB) ImportRepository {
	return &importRepository{db: db}
}

// CreateWithItems stores the import header and its rows atomically, so a
// statement is either fully present or absent.
func (r *importRepository) CreateWithItems(ctx context.Context, imp *models.InsurerReportImport, items []models.CommissionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(imp).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ImportID = imp.ID
			items[i].FortnightID = imp.FortnightID
		}
		return tx.Omit("Broker").CreateInBatches(&items, 200).Error
	})
}

func (r *importRepository) FindByID(ctx context.Context, id uint) (*models.InsurerReportImport, error) {
	var imp models.InsurerReportImport
	if err := r.db.WithContext(ctx).First(&imp, id).Error; err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *importRepository) ListByFortnight(ctx context.Context, fortnightID uint) ([]models.InsurerReportImport, error) {
	var imports []models.InsurerReportImport
	err := r.db.WithContext(ctx).
		Where("fortnight_id = ?", fortnightID).
		Order("created_at ASC").
		Find(&imports).Error
	return imports, err
}

// CommissionItemRepository defines the interface for commission item data access
type CommissionItemRepository interface {
	FindByID(ctx context.Context, id uint) (*models.CommissionItem, error)
	FindByFortnight(ctx context.Context, fortnightID uint) ([]models.CommissionItem, error)
	FindByImport(ctx context.Context, importID uint) ([]models.CommissionItem, error)
	FindPending(ctx context.Context, insurerKey string) ([]models.CommissionItem, error)
	Update(ctx context.Context, item *models.CommissionItem) error
}

type commissionItemRepository struct {
	db *gorm.DB
}

// NewCommissionItemRepository creates a new commission item repository
func NewCommissionItemRepository(db *gorm.DB) CommissionItemRepository {
	return &commissionItemRepository{db: db}
}

func (r *commissionItemRepository) FindByID(ctx context.Context, id uint) (*models.CommissionItem, error) {
	var item models.CommissionItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *commissionItemRepository) FindByFortnight(ctx context.Context, fortnightID uint) ([]models.CommissionItem, error) {
	var items []models.CommissionItem
	err := r.db.WithContext(ctx).
		Where("fortnight_id = ?", fortnightID).
		Order("import_id ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *commissionItemRepository) FindByImport(ctx context.Context, importID uint) ([]models.CommissionItem, error) {
	var items []models.CommissionItem
	err := r.db.WithContext(ctx).Where("import_id = ?", importID).Order("id ASC").Find(&items).Error
	return items, err
}

// FindPending returns unidentified items, optionally for one carrier
func (r *commissionItemRepository) FindPending(ctx context.Context, insurerKey string) ([]models.CommissionItem, error) {
	var items []models.CommissionItem
	db := r.db.WithContext(ctx).Where("status = ?", models.ItemStatusPendingIdentify)
	if insurerKey != "" {
		db = db.Where("insurer_key = ?", insurerKey)
	}
	err := db.Order("insurer_key ASC, raw_identifier ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *commissionItemRepository) Update(ctx context.Context, item *models.CommissionItem) error {
	return r.db.WithContext(ctx).Omit("Broker").Save(item).Error
}
