package repository

import (
	"context"
	"strings"

	"github.com/sjperalta/comisiones-api/internal/models"
	"gorm.io/gorm"
)

// BrokerRepository defines the interface for broker and pricing catalog access
type BrokerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Broker, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Broker, error)
	FindByAssaCode(ctx context.Context, code string) (*models.Broker, error)
	FindAllActive(ctx context.Context) ([]models.Broker, error)
	List(ctx context.Context, query *ListQuery) ([]models.Broker, int64, error)
	Create(ctx context.Context, broker *models.Broker) error
	Update(ctx context.Context, broker *models.Broker) error
	ListOverrides(ctx context.Context) ([]models.CommissionOverride, error)
	CreateOverride(ctx context.Context, override *models.CommissionOverride) error
}

type brokerRepository struct {
	db *gorm.DB
}

// NewBrokerRepository creates a new broker repository
func NewBrokerRepository(db *gorm.DB) BrokerRepository {
	return &brokerRepository{db: db}
}

func (r *brokerRepository) FindByID(ctx context.Context, id uint) (*models.Broker, error) {
	var broker models.Broker
	if err := r.db.WithContext(ctx).First(&broker, id).Error; err != nil {
		return nil, err
	}
	return &broker, nil
}

func (r *brokerRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Broker, error) {
	var brokers []models.Broker
	if len(ids) == 0 {
		return brokers, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&brokers).Error
	return brokers, err
}

func (r *brokerRepository) FindByAssaCode(ctx context.Context, code string) (*models.Broker, error) {
	var broker models.Broker
	err := r.db.WithContext(ctx).
		Where("assa_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&broker).Error
	if err != nil {
		return nil, err
	}
	return &broker, nil
}

func (r *brokerRepository) FindAllActive(ctx context.Context) ([]models.Broker, error) {
	var brokers []models.Broker
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&brokers).Error
	return brokers, err
}

func (r *brokerRepository) List(ctx context.Context, query *ListQuery) ([]models.Broker, int64, error) {
	var brokers []models.Broker
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Broker{})
	if query.Search != "" {
		search := "%" + strings.ToUpper(query.Search) + "%"
		db = db.Where("UPPER(name) LIKE ? OR UPPER(code) LIKE ? OR UPPER(assa_code) LIKE ?", search, search, search)
	}
	if query.Filters["on_hold"] == "true" {
		db = db.Where("on_hold = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order(query.OrderClause("name", "code", "name", "created_at")).
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&brokers).Error
	return brokers, total, err
}

func (r *brokerRepository) Create(ctx context.Context, broker *models.Broker) error {
	return r.db.WithContext(ctx).Create(broker).Error
}

func (r *brokerRepository) Update(ctx context.Context, broker *models.Broker) error {
	return r.db.WithContext(ctx).Save(broker).Error
}

func (r *brokerRepository) ListOverrides(ctx context.Context) ([]models.CommissionOverride, error) {
	var overrides []models.CommissionOverride
	err := r.db.WithContext(ctx).Order("insurer_key ASC, id ASC").Find(&overrides).Error
	return overrides, err
}

func (r *brokerRepository) CreateOverride(ctx context.Context, override *models.CommissionOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

// PolicyRepository defines the interface for policy lookup
type PolicyRepository interface {
	FindByNumber(ctx context.Context, insurerKey, number string) (*models.Policy, error)
	FindByNumbers(ctx context.Context, insurerKey string, numbers []string) ([]models.Policy, error)
	Create(ctx context.Context, policy *models.Policy) error
}

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) FindByNumber(ctx context.Context, insurerKey, number string) (*models.Policy, error) {
	var policy models.Policy
	err := r.db.WithContext(ctx).
		Where("insurer_key = ? AND number = ?", insurerKey, number).
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindByNumbers loads every policy of a statement in one round-trip
func (r *policyRepository) FindByNumbers(ctx context.Context, insurerKey string, numbers []string) ([]models.Policy, error) {
	var policies []models.Policy
	if len(numbers) == 0 {
		return policies, nil
	}
	err := r.db.WithContext(ctx).
		Where("insurer_key = ? AND number IN ?", insurerKey, numbers).
		Find(&policies).Error
	return policies, err
}

func (r *policyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}
