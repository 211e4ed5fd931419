package services

import (
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// PriceItem sets the broker share of an item. BROKER_NET amounts are already the
// broker's commission and are copied as they are; GROSS amounts are multiplied by
// the most specific override or the broker's default percent. Signs propagate.
func PriceItem(item *models.CommissionItem, broker models.Broker, cat *Catalog) {
	if item.AmountBasis == models.AmountBasisBrokerNet {
		item.BrokerAmount = item.GrossAmount
		item.PercentApplied = decimal.NullDecimal{}
		return
	}

	rate, override := cat.Rate(item.InsurerKey, item.ProductCode, broker)
	item.BrokerAmount = item.GrossAmount.Mul(rate).Round(2)
	item.PercentApplied = decimal.NewNullDecimal(rate)
	if override != nil {
		item.SetMeta(models.MetaOverrideID, override.ID)
	} else if item.Metadata != nil {
		delete(item.Metadata, models.MetaOverrideID)
	}
}
