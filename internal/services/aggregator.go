package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"gorm.io/datatypes"
)

// Hold reasons for retained totals
const (
	HoldReasonOnHold    = "corredor con pagos retenidos"
	HoldReasonNoAccount = "corredor sin cuenta bancaria"
)

// Discount kinds
const (
	DiscountKindAdvance = "advance"
	DiscountKindAdmin   = "admin"
)

// ItemLine is one commission row inside a broker breakdown
type ItemLine struct {
	ItemID       uint                `json:"item_id"`
	ImportID     uint                `json:"import_id"`
	PolicyNumber string              `json:"policy_number,omitempty"`
	AgentCode    string              `json:"agent_code,omitempty"`
	ClientName   string              `json:"client_name,omitempty"`
	ProductCode  string              `json:"product_code,omitempty"`
	Section      string              `json:"section,omitempty"`
	AmountBasis  string              `json:"amount_basis"`
	Gross        decimal.Decimal     `json:"gross"`
	Amount       decimal.Decimal     `json:"amount"`
	Percent      decimal.NullDecimal `json:"percent"`
	Status       string              `json:"status"`
}

// CarrierSubtotal groups a broker's policy rows of one carrier
type CarrierSubtotal struct {
	Insurer string          `json:"insurer"`
	Amount  decimal.Decimal `json:"amount"`
	Items   []ItemLine      `json:"items"`
}

// DiscountLine is a deduction from a broker's fortnight total
type DiscountLine struct {
	Kind        string          `json:"kind"`
	ID          uint            `json:"id"`
	AdvanceID   uint            `json:"advance_id,omitempty"`
	Concept     string          `json:"concept,omitempty"`
	PaymentDate string          `json:"payment_date,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// BrokerBreakdown is everything owed to one broker in a fortnight
type BrokerBreakdown struct {
	BrokerID      uint              `json:"broker_id"`
	BrokerName    string            `json:"broker_name"`
	Carriers      []CarrierSubtotal `json:"carriers"`
	Codes         []ItemLine        `json:"codes"`
	CodeAmount    decimal.Decimal   `json:"code_amount"`
	RetainedIn    decimal.Decimal   `json:"retained_in"`
	RetainedIDs   []uint            `json:"retained_ids,omitempty"`
	StillHeldIDs  []uint            `json:"still_held_ids,omitempty"` // carried in but broker still held; not in Gross
	Gross         decimal.Decimal   `json:"gross"`
	Discounts     []DiscountLine    `json:"discounts"`
	DiscountTotal decimal.Decimal   `json:"discount_total"`
	Net           decimal.Decimal   `json:"net"`
	Shortfall     decimal.Decimal   `json:"shortfall"`
	ItemCount     int               `json:"item_count"`
	Retained      bool              `json:"retained"`
	HoldReason    string            `json:"hold_reason,omitempty"`

	broker models.Broker
}

// Record is the broker row the breakdown was built from
func (b *BrokerBreakdown) Record() models.Broker {
	return b.broker
}

// Available is the commission still free for discounts
func (b *BrokerBreakdown) Available() decimal.Decimal {
	return floorZero(b.Gross.Sub(b.DiscountTotal))
}

// Breakdown is the recomputed state of a fortnight
type Breakdown struct {
	FortnightID   uint              `json:"fortnight_id"`
	Brokers       []BrokerBreakdown `json:"brokers"`
	MatchedTotal  decimal.Decimal   `json:"matched_total"`
	PendingCount  int               `json:"pending_count"`
	PendingTotal  decimal.Decimal   `json:"pending_total"`
	NetTotal      decimal.Decimal   `json:"net_total"`
	StagedItemIDs []uint            `json:"-"`
}

// Broker returns the breakdown of one broker, or nil
func (b *Breakdown) Broker(id uint) *BrokerBreakdown {
	for i := range b.Brokers {
		if b.Brokers[i].BrokerID == id {
			return &b.Brokers[i]
		}
	}
	return nil
}

// Totals converts the breakdown into rows for fortnight_broker_totals
func (b *Breakdown) Totals() []models.FortnightBrokerTotal {
	out := make([]models.FortnightBrokerTotal, 0, len(b.Brokers))
	for _, bb := range b.Brokers {
		byInsurer := datatypes.JSONMap{}
		for _, c := range bb.Carriers {
			byInsurer[c.Insurer] = c.Amount.StringFixed(2)
		}
		var advances, admin []any
		for _, d := range bb.Discounts {
			entry := map[string]any{"id": d.ID, "amount": d.Amount.StringFixed(2)}
			if d.Kind == DiscountKindAdvance {
				entry["advance_id"] = d.AdvanceID
				entry["payment_date"] = d.PaymentDate
				advances = append(advances, entry)
			} else {
				entry["concept"] = d.Concept
				admin = append(admin, entry)
			}
		}
		discounts := datatypes.JSONMap{
			"advances": advances,
			"admin":    admin,
			"total":    bb.DiscountTotal.StringFixed(2),
		}
		if bb.Shortfall.IsPositive() {
			discounts["shortfall"] = bb.Shortfall.StringFixed(2)
		}
		out = append(out, models.FortnightBrokerTotal{
			FortnightID:   b.FortnightID,
			BrokerID:      bb.BrokerID,
			GrossAmount:   bb.Gross,
			DiscountTotal: bb.DiscountTotal,
			NetAmount:     bb.Net,
			CodeAmount:    bb.CodeAmount,
			RetainedIn:    bb.RetainedIn,
			ItemCount:     bb.ItemCount,
			Retained:      bb.Retained,
			ByInsurer:     byInsurer,
			Discounts:     discounts,
		})
	}
	return out
}

// Aggregator recomputes fortnight totals from stored items, discounts and retained
// commissions. It never reads previously stored totals, so running it twice over the
// same rows yields the same result.
type Aggregator struct {
	repos *repository.Repositories
}

func NewAggregator(repos *repository.Repositories) *Aggregator {
	return &Aggregator{repos: repos}
}

// Compute builds the breakdown of a fortnight
func (a *Aggregator) Compute(ctx context.Context, fortnightID uint) (*Breakdown, error) {
	items, err := a.repos.Item.FindByFortnight(ctx, fortnightID)
	if err != nil {
		return nil, err
	}
	logs, err := a.repos.Advance.LogsByFortnight(ctx, fortnightID)
	if err != nil {
		return nil, err
	}
	adminDiscounts, err := a.repos.Discount.ListByFortnight(ctx, fortnightID)
	if err != nil {
		return nil, err
	}
	retained, err := a.repos.Retained.FindAssociated(ctx, fortnightID)
	if err != nil {
		return nil, err
	}

	out := &Breakdown{FortnightID: fortnightID}
	groups := map[uint]*BrokerBreakdown{}
	group := func(id uint) *BrokerBreakdown {
		g, ok := groups[id]
		if !ok {
			g = &BrokerBreakdown{BrokerID: id}
			groups[id] = g
		}
		return g
	}
	carriers := map[uint]map[string]*CarrierSubtotal{}

	for i := range items {
		item := &items[i]
		if !item.CountsForBroker() {
			out.PendingCount++
			out.PendingTotal = out.PendingTotal.Add(item.GrossAmount)
			continue
		}
		if item.Status == models.ItemStatusStaged {
			out.StagedItemIDs = append(out.StagedItemIDs, item.ID)
		}
		out.MatchedTotal = out.MatchedTotal.Add(item.BrokerAmount)

		g := group(*item.BrokerID)
		g.ItemCount++
		line := itemLine(item)
		if item.IsAssaCode {
			g.Codes = append(g.Codes, line)
			g.CodeAmount = g.CodeAmount.Add(item.BrokerAmount)
			continue
		}
		if carriers[g.BrokerID] == nil {
			carriers[g.BrokerID] = map[string]*CarrierSubtotal{}
		}
		sub, ok := carriers[g.BrokerID][item.InsurerKey]
		if !ok {
			sub = &CarrierSubtotal{Insurer: item.InsurerKey}
			carriers[g.BrokerID][item.InsurerKey] = sub
		}
		sub.Items = append(sub.Items, line)
		sub.Amount = sub.Amount.Add(item.BrokerAmount)
	}

	carried := map[uint][]models.RetainedCommission{}
	for _, r := range retained {
		group(r.BrokerID)
		carried[r.BrokerID] = append(carried[r.BrokerID], r)
	}

	advanceBroker := map[uint]uint{}
	for _, l := range logs {
		brokerID, ok := advanceBroker[l.AdvanceID]
		if !ok {
			adv, err := a.repos.Advance.FindByID(ctx, l.AdvanceID)
			if err != nil {
				return nil, err
			}
			brokerID = adv.BrokerID
			advanceBroker[l.AdvanceID] = brokerID
		}
		g := group(brokerID)
		g.Discounts = append(g.Discounts, DiscountLine{
			Kind:        DiscountKindAdvance,
			ID:          l.ID,
			AdvanceID:   l.AdvanceID,
			PaymentDate: l.PaymentDate.Format("2006-01-02"),
			Amount:      l.Amount,
		})
		g.DiscountTotal = g.DiscountTotal.Add(l.Amount)
	}
	for _, d := range adminDiscounts {
		g := group(d.BrokerID)
		g.Discounts = append(g.Discounts, DiscountLine{
			Kind:    DiscountKindAdmin,
			ID:      d.ID,
			Concept: d.Concept,
			Amount:  d.Amount,
		})
		g.DiscountTotal = g.DiscountTotal.Add(d.Amount)
	}

	ids := make([]uint, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	brokers, err := a.repos.Broker.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Broker, len(brokers))
	for _, b := range brokers {
		byID[b.ID] = b
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		g := groups[id]
		for _, sub := range carriers[id] {
			g.Carriers = append(g.Carriers, *sub)
		}
		sort.Slice(g.Carriers, func(i, j int) bool { return g.Carriers[i].Insurer < g.Carriers[j].Insurer })

		if b, ok := byID[id]; ok {
			g.broker = b
			g.BrokerName = b.Name
			switch {
			case b.OnHold:
				g.Retained, g.HoldReason = true, HoldReasonOnHold
			case !b.HasBankAccount():
				g.Retained, g.HoldReason = true, HoldReasonNoAccount
			}
		}

		for _, r := range carried[id] {
			if g.Retained && r.Status == models.RetainedStatusAssociated {
				g.StillHeldIDs = append(g.StillHeldIDs, r.ID)
				continue
			}
			g.RetainedIn = g.RetainedIn.Add(r.Amount)
			g.RetainedIDs = append(g.RetainedIDs, r.ID)
		}

		g.Gross = g.RetainedIn.Add(g.CodeAmount)
		for _, c := range g.Carriers {
			g.Gross = g.Gross.Add(c.Amount)
		}
		g.Net = g.Gross.Sub(g.DiscountTotal)
		if g.Net.IsNegative() {
			// reversals imported after the discounts were applied
			g.Shortfall = g.Net.Neg()
			g.Net = decimal.Zero
		}
		out.NetTotal = out.NetTotal.Add(g.Net)
		out.Brokers = append(out.Brokers, *g)
	}
	return out, nil
}

func itemLine(item *models.CommissionItem) ItemLine {
	return ItemLine{
		ItemID:       item.ID,
		ImportID:     item.ImportID,
		PolicyNumber: item.PolicyNumber,
		AgentCode:    item.AgentCode,
		ClientName:   item.ClientName,
		ProductCode:  item.ProductCode,
		Section:      item.Section,
		AmountBasis:  item.AmountBasis,
		Gross:        item.GrossAmount,
		Amount:       item.BrokerAmount,
		Percent:      item.PercentApplied,
		Status:       item.Status,
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
