package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/metrics"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/storage"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// AgentCodeInsurer is the carrier whose statement is keyed by agent code
const AgentCodeInsurer = "assa"

// ImportInput is one uploaded carrier statement
type ImportInput struct {
	Insurer       string
	FortnightID   uint
	FileName      string
	Data          []byte
	DeclaredTotal decimal.NullDecimal
	UserID        uint
}

// ImportResult summarizes an ingested statement
type ImportResult struct {
	ImportID        uint            `json:"import_id"`
	BatchRef        string          `json:"batch_ref"`
	Insurer         string          `json:"insurer"`
	Backend         string          `json:"backend"`
	Processed       int             `json:"processed"`
	Matched         int             `json:"matched"`
	PendingIdentify int             `json:"pending_identify"`
	Duplicated      int             `json:"duplicated"`
	Rejected        int             `json:"rejected"`
	DeclaredTotal   decimal.Decimal `json:"declared_total"`
	ComputedTotal   decimal.Decimal `json:"computed_total"`
	Variance        decimal.Decimal `json:"variance"`
	Reconciled      bool            `json:"reconciled"`
	MatchedTotal    decimal.Decimal `json:"matched_total"`
	PendingTotal    decimal.Decimal `json:"pending_identify_total"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// PendingGroup is the pending-identify bucket of one carrier and identifier
type PendingGroup struct {
	Insurer       string                  `json:"insurer"`
	RawIdentifier string                  `json:"raw_identifier"`
	Count         int                     `json:"count"`
	Total         decimal.Decimal         `json:"total"`
	Items         []models.CommissionItem `json:"items"`
}

// ResolveInput assigns a pending item to a broker by hand
type ResolveInput struct {
	ItemID   uint
	BrokerID uint
	UserID   uint
}

// IngestionService turns uploaded statements into commission items
type IngestionService struct {
	repos     *repository.Repositories
	registry  *parsers.Registry
	extractor *extract.Chain
	catalog   *CatalogService
	matcher   *Matcher
	codes     CodeValidator
	storage   *storage.LocalStorage
	locker    cache.Locker
	auditSvc  *AuditService
	timeout   time.Duration
	tolerance decimal.Decimal
}

func NewIngestionService(
	repos *repository.Repositories,
	registry *parsers.Registry,
	extractor *extract.Chain,
	catalog *CatalogService,
	codes CodeValidator,
	storage *storage.LocalStorage,
	locker cache.Locker,
	auditSvc *AuditService,
	timeout time.Duration,
	tolerance decimal.Decimal,
) *IngestionService {
	return &IngestionService{
		repos:     repos,
		registry:  registry,
		extractor: extractor,
		catalog:   catalog,
		matcher:   NewMatcher(repos.Policy),
		codes:     codes,
		storage:   storage,
		locker:    locker,
		auditSvc:  auditSvc,
		timeout:   timeout,
		tolerance: tolerance,
	}
}

// Import ingests a carrier statement into a DRAFT fortnight. Unmatched rows go to
// the pending-identify bucket and still count toward reconciliation. A declared total
// that differs beyond tolerance flags the import as mismatch but does not reject it.
func (s *IngestionService) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	carrier, err := s.registry.Get(in.Insurer)
	if err != nil {
		return nil, err
	}
	result, err := s.ingest(ctx, carrier, in)
	label := "processed"
	switch {
	case err != nil:
		label = "failed"
	case !result.Reconciled:
		label = "mismatch"
	}
	metrics.ImportsTotal.WithLabelValues(carrier.Key(), label).Inc()
	return result, err
}

// ImportAgentCodes ingests the code-based distribution statement
func (s *IngestionService) ImportAgentCodes(ctx context.Context, in ImportInput) (*ImportResult, error) {
	if in.Insurer == "" {
		in.Insurer = AgentCodeInsurer
	}
	carrier, err := s.registry.Get(in.Insurer)
	if err != nil {
		return nil, err
	}
	if !carrier.AgentCodes() {
		return nil, ErrNotAgentCodes
	}
	return s.Import(ctx, in)
}

func (s *IngestionService) ingest(ctx context.Context, carrier parsers.Carrier, in ImportInput) (*ImportResult, error) {
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var result *ImportResult
	err := withFortnightLock(ctx, s.locker, in.FortnightID, s.timeout+time.Minute, func() error {
		fortnight, err := s.repos.Fortnight.FindByID(ctx, in.FortnightID)
		if err != nil {
			return notFound(err)
		}
		if !fortnight.IsDraft() {
			return ErrInvalidFortnightState
		}

		started := time.Now()
		doc, err := s.extractor.Extract(ctx, in.FileName, in.Data)
		if err != nil {
			return err
		}
		parsed, err := parsers.Run(carrier, doc)
		metrics.ParseDuration.WithLabelValues(carrier.Key()).Observe(time.Since(started).Seconds())
		if err != nil {
			var perr *parsers.ParseError
			if errors.As(err, &perr) {
				logger.Warn("Statement parse failed",
					"insurer", perr.Insurer, "kind", perr.Unwrap(), "file", in.FileName, "backend", doc.Backend, "reason", perr.Reason, "snippet", perr.Snippet)
			}
			return err
		}

		rows, dupes := Normalize(carrier, parsed.Rows)
		warnings := append([]string(nil), parsed.Diagnostics...)
		if dupes > 0 {
			warnings = append(warnings, fmt.Sprintf("%d filas duplicadas descartadas", dupes))
		}
		rejected := 0
		if carrier.AgentCodes() {
			rows, rejected, warnings = s.validateCodes(rows, warnings)
		}

		cat, err := s.catalog.Get(ctx)
		if err != nil {
			return err
		}
		items, err := s.matcher.Match(ctx, carrier, fortnight, cat, rows)
		if err != nil {
			return err
		}

		res := &ImportResult{
			BatchRef:   uuid.NewString(),
			Insurer:    carrier.Key(),
			Backend:    doc.Backend,
			Processed:  len(items),
			Duplicated: dupes,
			Rejected:   rejected,
		}
		for _, item := range items {
			res.ComputedTotal = res.ComputedTotal.Add(item.GrossAmount)
			if item.Status == models.ItemStatusMatched {
				res.Matched++
				res.MatchedTotal = res.MatchedTotal.Add(item.BrokerAmount)
			} else {
				res.PendingIdentify++
				res.PendingTotal = res.PendingTotal.Add(item.GrossAmount)
			}
		}

		switch {
		case in.DeclaredTotal.Valid:
			res.DeclaredTotal = in.DeclaredTotal.Decimal.Round(2)
		case parsed.DeclaredTotal.Valid:
			res.DeclaredTotal = parsed.DeclaredTotal.Decimal.Round(2)
		default:
			res.DeclaredTotal = res.ComputedTotal
			warnings = append(warnings, "sin total declarado, se usa el total calculado")
		}
		res.Variance = res.ComputedTotal.Sub(res.DeclaredTotal)
		res.Reconciled = res.Variance.Abs().LessThanOrEqual(s.tolerance)
		if !res.Reconciled {
			warnings = append(warnings, fmt.Sprintf("total declarado %s difiere del calculado %s (diferencia %s)",
				res.DeclaredTotal.StringFixed(2), res.ComputedTotal.StringFixed(2), res.Variance.StringFixed(2)))
		}
		res.Warnings = warnings

		path, err := s.storage.Save(in.Data, in.FileName, storage.DirStatements)
		if err != nil {
			return err
		}

		imp := &models.InsurerReportImport{
			BatchRef:         res.BatchRef,
			InsurerKey:       carrier.Key(),
			FortnightID:      fortnight.ID,
			FileName:         in.FileName,
			StoragePath:      path,
			IsAgentCode:      carrier.AgentCodes(),
			DeclaredTotal:    res.DeclaredTotal,
			ComputedTotal:    res.ComputedTotal,
			Variance:         res.Variance,
			Status:           models.ImportStatusProcessed,
			RowsProcessed:    res.Processed,
			RowsMatched:      res.Matched,
			RowsPending:      res.PendingIdentify,
			RowsDuplicated:   dupes,
			UploadedByUserID: userRef(in.UserID),
		}
		if !res.Reconciled {
			imp.Status = models.ImportStatusMismatch
		}
		if err := s.repos.Import.CreateWithItems(ctx, imp, items); err != nil {
			if delErr := s.storage.Delete(path); delErr != nil {
				logger.Warn("Failed to remove statement of failed import", "path", path, "error", delErr)
			}
			return err
		}
		res.ImportID = imp.ID
		result = res

		metrics.ImportRows.WithLabelValues(carrier.Key(), models.ItemStatusMatched).Add(float64(res.Matched))
		metrics.ImportRows.WithLabelValues(carrier.Key(), models.ItemStatusPendingIdentify).Add(float64(res.PendingIdentify))
		if !res.Reconciled {
			logger.Warn("Statement total mismatch",
				"import_id", imp.ID, "insurer", carrier.Key(), "declared", res.DeclaredTotal, "computed", res.ComputedTotal, "variance", res.Variance)
		}
		logger.Info("Statement imported",
			"import_id", imp.ID, "insurer", carrier.Key(), "fortnight_id", fortnight.ID, "backend", doc.Backend,
			"processed", res.Processed, "matched", res.Matched, "pending", res.PendingIdentify, "duplicated", dupes)
		s.auditSvc.Log(ctx, in.UserID, models.AuditActionImport, "InsurerReportImport", imp.ID,
			fmt.Sprintf("Estado de cuenta %s importado (%s). Filas: %d, Identificadas: %d, Pendientes: %d, Total: %s",
				carrier.Name(), in.FileName, res.Processed, res.Matched, res.PendingIdentify, res.ComputedTotal.StringFixed(2)), "", "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *IngestionService) validateCodes(rows []NormalizedRow, warnings []string) ([]NormalizedRow, int, []string) {
	kept := rows[:0]
	rejected := 0
	for _, r := range rows {
		if err := s.codes.Validate(r.AgentCode); err != nil {
			rejected++
			warnings = append(warnings, err.Error())
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected, warnings
}

// FindImport returns an import with its items
func (s *IngestionService) FindImport(ctx context.Context, id uint) (*models.InsurerReportImport, error) {
	imp, err := s.repos.Import.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	items, err := s.repos.Item.FindByImport(ctx, id)
	if err != nil {
		return nil, err
	}
	imp.Items = items
	return imp, nil
}

// PendingItems groups unidentified items by carrier and raw identifier
func (s *IngestionService) PendingItems(ctx context.Context, insurer string) ([]PendingGroup, error) {
	items, err := s.repos.Item.FindPending(ctx, insurer)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	var groups []PendingGroup
	for _, item := range items {
		key := item.InsurerKey + "\x00" + item.RawIdentifier
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PendingGroup{Insurer: item.InsurerKey, RawIdentifier: item.RawIdentifier})
		}
		groups[i].Count++
		groups[i].Total = groups[i].Total.Add(item.GrossAmount)
		groups[i].Items = append(groups[i].Items, item)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Insurer != groups[b].Insurer {
			return groups[a].Insurer < groups[b].Insurer
		}
		return groups[a].RawIdentifier < groups[b].RawIdentifier
	})
	return groups, nil
}

// Resolve assigns a pending item to a broker. The item is priced with the broker's
// rules and staged; it joins the matched rows when the fortnight closes.
func (s *IngestionService) Resolve(ctx context.Context, in ResolveInput) (*models.CommissionItem, error) {
	item, err := s.repos.Item.FindByID(ctx, in.ItemID)
	if err != nil {
		return nil, notFound(err)
	}
	if !item.MayResolve() {
		return nil, ErrItemNotPending
	}

	err = withFortnightLock(ctx, s.locker, item.FortnightID, s.timeout+time.Minute, func() error {
		fortnight, err := s.repos.Fortnight.FindByID(ctx, item.FortnightID)
		if err != nil {
			return notFound(err)
		}
		if !fortnight.IsDraft() {
			return ErrInvalidFortnightState
		}
		cat, err := s.catalog.Get(ctx)
		if err != nil {
			return err
		}
		broker, ok := cat.Broker(in.BrokerID)
		if !ok {
			if _, err := s.repos.Broker.FindByID(ctx, in.BrokerID); err != nil {
				return notFound(err)
			}
			return ErrBrokerInactive
		}

		item.BrokerID = &broker.ID
		item.Status = models.ItemStatusStaged
		item.Broker = nil
		PriceItem(item, broker, cat)
		item.SetMeta(models.MetaResolvedByUserID, in.UserID)
		return s.repos.Item.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, in.UserID, models.AuditActionResolve, "CommissionItem", item.ID,
		fmt.Sprintf("Registro %s (%s) asignado al corredor %d. Monto: %s",
			item.RawIdentifier, item.InsurerKey, in.BrokerID, item.BrokerAmount.StringFixed(2)), "", "")
	return item, nil
}
