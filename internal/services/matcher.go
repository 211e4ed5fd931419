package services

import (
	"context"

	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// Matcher attributes normalized rows to brokers: policy number first, then agent
// code for code-based statements, else the pending-identify bucket.
type Matcher struct {
	policies repository.PolicyRepository
}

func NewMatcher(policies repository.PolicyRepository) *Matcher {
	return &Matcher{policies: policies}
}

// Match builds priced commission items for one import
func (m *Matcher) Match(ctx context.Context, c parsers.Carrier, fortnight *models.Fortnight, cat *Catalog, rows []NormalizedRow) ([]models.CommissionItem, error) {
	numbers := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.PolicyKey != "" {
			numbers = append(numbers, r.PolicyKey)
		}
	}
	policies, err := m.policies.FindByNumbers(ctx, c.Key(), numbers)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[string]*models.Policy, len(policies))
	for i := range policies {
		byNumber[policies[i].Number] = &policies[i]
	}

	items := make([]models.CommissionItem, 0, len(rows))
	for _, r := range rows {
		item := newItem(c, fortnight, r)

		if p, ok := byNumber[r.PolicyKey]; ok && r.PolicyKey != "" {
			item.PolicyID = &p.ID
			if p.BrokerID != nil {
				if broker, ok := cat.Broker(*p.BrokerID); ok {
					assign(&item, broker, cat)
					flagLateAssignment(&item, p, fortnight)
				} else {
					item.SetMeta("note", "corredor de la póliza inactivo")
				}
			}
		}

		if item.BrokerID == nil && r.IsAssaCode && r.AgentCode != "" {
			if broker, ok := cat.BrokerByCode(r.AgentCode); ok {
				assign(&item, broker, cat)
			}
		}

		items = append(items, item)
	}
	return items, nil
}

func newItem(c parsers.Carrier, fortnight *models.Fortnight, r NormalizedRow) models.CommissionItem {
	return models.CommissionItem{
		FortnightID:   fortnight.ID,
		InsurerKey:    c.Key(),
		PolicyNumber:  r.PolicyKey,
		RawIdentifier: r.RawIdentifier(),
		ClientName:    r.ClientName,
		ProductCode:   r.ProductCode,
		Section:       r.Section,
		AgentCode:     r.AgentCode,
		IsAssaCode:    r.IsAssaCode,
		AmountBasis:   c.Basis(),
		GrossAmount:   r.Amount,
		Status:        models.ItemStatusPendingIdentify,
		RowHash:       r.Hash,
		RawLine:       r.Line,
	}
}

func assign(item *models.CommissionItem, broker models.Broker, cat *Catalog) {
	item.BrokerID = &broker.ID
	item.Status = models.ItemStatusMatched
	PriceItem(item, broker, cat)
}

// flagLateAssignment marks items whose policy changed broker after the period ended.
// The broker of record is still used; the flag lets operators review the attribution.
func flagLateAssignment(item *models.CommissionItem, p *models.Policy, fortnight *models.Fortnight) {
	if p.BrokerAssignedAt == nil || !p.BrokerAssignedAt.After(endOfDay(fortnight.PeriodEnd)) {
		return
	}
	item.SetMeta(models.MetaBrokerAssignedAfterPeriod, p.BrokerAssignedAt.Format("2006-01-02"))
	logger.Warn("Policy broker assigned after commission period",
		"policy", p.Number, "insurer", p.InsurerKey, "assigned_at", p.BrokerAssignedAt, "period_end", fortnight.PeriodEnd)
}
