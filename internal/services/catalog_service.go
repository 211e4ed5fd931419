package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

const catalogCacheKey = "catalog:v1"

// Catalog is the pricing snapshot used while ingesting: active brokers, override
// rules and the agent-code table.
type Catalog struct {
	Brokers    map[uint]models.Broker      `json:"brokers"`
	Overrides  []models.CommissionOverride `json:"overrides"`
	AgentCodes map[string]uint             `json:"agent_codes"`
}

// Broker returns an active broker by id
func (c *Catalog) Broker(id uint) (models.Broker, bool) {
	b, ok := c.Brokers[id]
	return b, ok
}

// BrokerByCode resolves an agent code to its broker
func (c *Catalog) BrokerByCode(code string) (models.Broker, bool) {
	id, ok := c.AgentCodes[NormalizeAgentCode(code)]
	if !ok {
		return models.Broker{}, false
	}
	return c.Broker(id)
}

// Override returns the most specific override for the carrier, product and broker.
// Ties keep the earliest rule.
func (c *Catalog) Override(insurerKey, productCode string, brokerID uint) *models.CommissionOverride {
	var best *models.CommissionOverride
	for i := range c.Overrides {
		o := &c.Overrides[i]
		if !strings.EqualFold(o.InsurerKey, insurerKey) {
			continue
		}
		if o.ProductCode != "" && !strings.EqualFold(o.ProductCode, productCode) {
			continue
		}
		if o.BrokerID != nil && *o.BrokerID != brokerID {
			continue
		}
		if best == nil || o.Specificity() > best.Specificity() {
			best = o
		}
	}
	return best
}

// Rate is the percent a broker earns on a carrier product
func (c *Catalog) Rate(insurerKey, productCode string, broker models.Broker) (decimal.Decimal, *models.CommissionOverride) {
	if o := c.Override(insurerKey, productCode, broker.ID); o != nil {
		return o.Percent, o
	}
	return broker.PercentDefault, nil
}

// CatalogService loads the Catalog through an injected TTL cache
type CatalogService struct {
	brokers repository.BrokerRepository
	cache   cache.Cache
	ttl     time.Duration
}

func NewCatalogService(brokers repository.BrokerRepository, store cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{brokers: brokers, cache: store, ttl: ttl}
}

// Get returns the cached catalog, loading it on a miss. Cache failures fall back to the database.
func (s *CatalogService) Get(ctx context.Context) (*Catalog, error) {
	var cat Catalog
	hit, err := s.cache.Get(ctx, catalogCacheKey, &cat)
	if err != nil {
		logger.Warn("Catalog cache read failed", "error", err)
	}
	if hit {
		return &cat, nil
	}

	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, catalogCacheKey, loaded, s.ttl); err != nil {
		logger.Warn("Catalog cache write failed", "error", err)
	}
	return loaded, nil
}

// Reset drops the cached catalog so the next Get reloads it
func (s *CatalogService) Reset(ctx context.Context) error {
	return s.cache.Delete(ctx, catalogCacheKey)
}

func (s *CatalogService) load(ctx context.Context) (*Catalog, error) {
	brokers, err := s.brokers.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.brokers.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		Brokers:    make(map[uint]models.Broker, len(brokers)),
		Overrides:  overrides,
		AgentCodes: make(map[string]uint),
	}
	for _, b := range brokers {
		cat.Brokers[b.ID] = b
		if b.AssaCode != nil && *b.AssaCode != "" {
			cat.AgentCodes[NormalizeAgentCode(*b.AssaCode)] = b.ID
		}
	}
	logger.Debug("Catalog loaded", "brokers", len(cat.Brokers), "overrides", len(overrides), "agent_codes", len(cat.AgentCodes))
	return cat, nil
}

// BrokerUpdate holds the editable broker fields; nil leaves a field unchanged
type BrokerUpdate struct {
	PercentDefault    *decimal.Decimal
	OnHold            *bool
	Active            *bool
	BankName          *string
	BankRouting       *string
	BankAccountNumber *string
	BankAccountType   *string
}

func (s *CatalogService) ListBrokers(ctx context.Context, query *repository.ListQuery) ([]models.Broker, int64, error) {
	return s.brokers.List(ctx, query)
}

// UpdateBroker applies the changes and drops the cached catalog
func (s *CatalogService) UpdateBroker(ctx context.Context, id uint, in BrokerUpdate) (*models.Broker, error) {
	broker, err := s.brokers.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if in.PercentDefault != nil {
		if !validPercent(*in.PercentDefault) {
			return nil, ErrInvalidPercent
		}
		broker.PercentDefault = *in.PercentDefault
	}
	if in.BankAccountType != nil {
		switch *in.BankAccountType {
		case models.AccountTypeSavings, models.AccountTypeChecking, "":
		default:
			return nil, ErrInvalidAccountType
		}
		broker.BankAccountType = *in.BankAccountType
	}
	setIf(&broker.OnHold, in.OnHold)
	setIf(&broker.Active, in.Active)
	setIf(&broker.BankName, in.BankName)
	setIf(&broker.BankRouting, in.BankRouting)
	setIf(&broker.BankAccountNumber, in.BankAccountNumber)

	if err := s.brokers.Update(ctx, broker); err != nil {
		return nil, err
	}
	s.resetLogged(ctx)
	return broker, nil
}

// CreateOverride stores a percent override and drops the cached catalog
func (s *CatalogService) CreateOverride(ctx context.Context, o *models.CommissionOverride) error {
	if strings.TrimSpace(o.InsurerKey) == "" || !validPercent(o.Percent) {
		return ErrInvalidPercent
	}
	o.InsurerKey = strings.ToLower(strings.TrimSpace(o.InsurerKey))
	o.ProductCode = strings.TrimSpace(o.ProductCode)
	if err := s.brokers.CreateOverride(ctx, o); err != nil {
		return err
	}
	s.resetLogged(ctx)
	return nil
}

func (s *CatalogService) resetLogged(ctx context.Context) {
	if err := s.Reset(ctx); err != nil {
		logger.Warn("Catalog cache reset failed", "error", err)
	}
}

// percents are stored as fractions (0.80 = 80%)
func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(decimal.NewFromInt(1))
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
