package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/metrics"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/statemachine"
	"github.com/sjperalta/comisiones-api/internal/storage"
	"github.com/sjperalta/comisiones-api/pkg/logger"
	"gorm.io/gorm"
)

// FortnightSummary is the operator view of a fortnight
type FortnightSummary struct {
	Fortnight *models.Fortnight             `json:"fortnight"`
	Label     string                        `json:"label"`
	Breakdown *Breakdown                    `json:"breakdown"`
	Totals    []models.FortnightBrokerTotal `json:"stored_totals"`
	Imports   []models.InsurerReportImport  `json:"imports"`
}

// CloseResult is what a successful close produced
type CloseResult struct {
	Fortnight *models.Fortnight             `json:"fortnight"`
	Totals    []models.FortnightBrokerTotal `json:"totals"`
	Retained  []models.RetainedCommission   `json:"retained"`
	BankFile  *BankFile                     `json:"bank_file"`
}

// FortnightService provisions, recalculates and closes fortnights
type FortnightService struct {
	repos      *repository.Repositories
	aggregator *Aggregator
	bank       *BankFileGenerator
	storage    *storage.LocalStorage
	locker     cache.Locker
	lockTTL    time.Duration
	auditSvc   *AuditService
	now        func() time.Time
}

func NewFortnightService(
	repos *repository.Repositories,
	aggregator *Aggregator,
	bank *BankFileGenerator,
	storage *storage.LocalStorage,
	locker cache.Locker,
	lockTTL time.Duration,
	auditSvc *AuditService,
) *FortnightService {
	return &FortnightService{
		repos:      repos,
		aggregator: aggregator,
		bank:       bank,
		storage:    storage,
		locker:     locker,
		lockTTL:    lockTTL,
		auditSvc:   auditSvc,
		now:        time.Now,
	}
}

func (s *FortnightService) FindByID(ctx context.Context, id uint) (*models.Fortnight, error) {
	f, err := s.repos.Fortnight.FindByID(ctx, id)
	return f, notFound(err)
}

func (s *FortnightService) List(ctx context.Context, query *repository.ListQuery) ([]models.Fortnight, int64, error) {
	return s.repos.Fortnight.List(ctx, query)
}

// EnsureFortnight returns the half-month fortnight containing day, creating it as
// DRAFT when missing. The bool reports whether it was created.
func (s *FortnightService) EnsureFortnight(ctx context.Context, day time.Time) (*models.Fortnight, bool, error) {
	y, m, d := day.Date()
	start, end := models.FortnightBounds(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))

	existing, err := s.repos.Fortnight.FindByPeriodStart(ctx, start)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	f := &models.Fortnight{PeriodStart: start, PeriodEnd: end, Status: models.FortnightStatusDraft}
	if err := s.repos.Fortnight.Create(ctx, f); err != nil {
		// another instance created it first
		if again, findErr := s.repos.Fortnight.FindByPeriodStart(ctx, start); findErr == nil {
			return again, false, nil
		}
		return nil, false, err
	}
	logger.Info("Fortnight provisioned", "fortnight_id", f.ID, "label", f.Label())
	return f, true, nil
}

// Summary recomputes the breakdown and lists stored totals and imports
func (s *FortnightService) Summary(ctx context.Context, id uint) (*FortnightSummary, error) {
	f, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.aggregator.Compute(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.repos.Fortnight.ListTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	imports, err := s.repos.Import.ListByFortnight(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FortnightSummary{Fortnight: f, Label: f.Label(), Breakdown: breakdown, Totals: totals, Imports: imports}, nil
}

// Recalculate rebuilds the stored totals of a DRAFT fortnight from its items
func (s *FortnightService) Recalculate(ctx context.Context, id uint) (*Breakdown, error) {
	var breakdown *Breakdown
	err := withFortnightLock(ctx, s.locker, id, s.lockTTL, func() error {
		f, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !f.IsDraft() {
			return ErrInvalidFortnightState
		}
		breakdown, err = s.aggregator.Compute(ctx, id)
		if err != nil {
			return err
		}
		return s.repos.Fortnight.ReplaceTotals(ctx, id, breakdown.Totals())
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// Close pays a fortnight. Totals are recomputed from items, retained commissions
// associated to the fortnight are released, staged items are promoted, held brokers
// get a retained commission and the bank file is written; the status change and all
// rows are persisted in one transaction guarded by the DRAFT status. A failed close
// leaves the fortnight DRAFT and can be retried.
func (s *FortnightService) Close(ctx context.Context, id uint, userID uint) (*CloseResult, error) {
	var result *CloseResult
	err := withFortnightLock(ctx, s.locker, id, s.lockTTL, func() error {
		var err error
		result, err = s.close(ctx, id, userID)
		return err
	})
	switch {
	case err == nil:
		metrics.FortnightCloses.WithLabelValues("paid").Inc()
	case errors.Is(err, ErrInvalidFortnightState):
		metrics.FortnightCloses.WithLabelValues("rejected").Inc()
	default:
		metrics.FortnightCloses.WithLabelValues("failed").Inc()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FortnightService) close(ctx context.Context, id uint, userID uint) (*CloseResult, error) {
	f, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.NewFortnightFSM(f).Close(ctx); err != nil {
		return nil, ErrInvalidFortnightState
	}

	breakdown, err := s.aggregator.Compute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("recalculate: %w", err)
	}

	carried, err := s.repos.Retained.FindAssociated(ctx, id)
	if err != nil {
		return nil, err
	}
	stillHeld := map[uint]bool{}
	for _, bb := range breakdown.Brokers {
		for _, rid := range bb.StillHeldIDs {
			stillHeld[rid] = true
		}
	}
	var paidRetained, releasedRetained []uint
	for i := range carried {
		r := &carried[i]
		if r.Status != models.RetainedStatusAssociated {
			continue
		}
		machine := statemachine.NewRetainedFSM(r)
		if stillHeld[r.ID] {
			if err := machine.Release(ctx); err != nil {
				return nil, transitionError(err)
			}
			releasedRetained = append(releasedRetained, r.ID)
			continue
		}
		if err := machine.Pay(ctx); err != nil {
			return nil, transitionError(err)
		}
		paidRetained = append(paidRetained, r.ID)
	}

	totals := breakdown.Totals()
	brokers := make(map[uint]models.Broker, len(breakdown.Brokers))
	var held []models.RetainedCommission
	for _, bb := range breakdown.Brokers {
		brokers[bb.BrokerID] = bb.Record()
		if bb.Shortfall.IsPositive() {
			logger.Warn("Broker discounts exceed commission at close",
				"fortnight_id", id, "broker_id", bb.BrokerID, "gross", bb.Gross, "discounts", bb.DiscountTotal, "shortfall", bb.Shortfall)
		}
		if bb.Retained && bb.Net.IsPositive() {
			held = append(held, models.RetainedCommission{
				BrokerID:          bb.BrokerID,
				SourceFortnightID: id,
				Amount:            bb.Net,
				Reason:            bb.HoldReason,
				Status:            models.RetainedStatusPending,
			})
		}
	}

	batch := uuid.NewString()
	file, err := s.bank.Generate(f, batch, totals, brokers)
	if err != nil {
		return nil, err
	}
	path, err := s.storage.Save(file.Content, file.FileName, storage.DirBankFiles)
	if err != nil {
		return nil, err
	}

	closedAt := s.now()
	in := &repository.CloseInput{
		FortnightID:         id,
		ClosedAt:            closedAt,
		ClosedByUserID:      userRef(userID),
		Totals:              totals,
		StagedItemIDs:       breakdown.StagedItemIDs,
		NewRetained:         held,
		PaidRetainedIDs:     paidRetained,
		ReleasedRetainedIDs: releasedRetained,
		BankFilePath:        path,
		BankFileBatch:       batch,
	}
	if err := s.repos.Fortnight.Close(ctx, in); err != nil {
		if delErr := s.storage.Delete(path); delErr != nil {
			logger.Warn("Failed to remove bank file of failed close", "path", path, "error", delErr)
		}
		return nil, staleAsFortnightState(err)
	}

	f.ClosedAt = &closedAt
	f.ClosedByUserID = in.ClosedByUserID
	f.BankFilePath = &path
	f.BankFileBatch = &batch

	logger.Info("Fortnight closed",
		"fortnight_id", id, "label", f.Label(), "brokers", len(totals), "transfers", len(file.Rows),
		"total", file.Total, "retained", len(held), "released", len(releasedRetained), "staged_promoted", len(breakdown.StagedItemIDs))
	s.auditSvc.Log(ctx, userID, models.AuditActionClose, "Fortnight", id,
		fmt.Sprintf("Quincena %s pagada. Transferencias: %d, Total: %s, Retenidos: %d",
			f.Label(), len(file.Rows), file.Total.StringFixed(2), len(held)), "", "")

	return &CloseResult{Fortnight: f, Totals: in.Totals, Retained: in.NewRetained, BankFile: file}, nil
}

// BankFile returns the payment file of a PAID fortnight. A file missing from storage
// is rebuilt from the stored totals.
func (s *FortnightService) BankFile(ctx context.Context, id uint) (*BankFile, error) {
	f, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != models.FortnightStatusPaid {
		return nil, ErrFortnightNotPaid
	}

	totals, err := s.repos.Fortnight.ListTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	brokers := make(map[uint]models.Broker, len(totals))
	for _, t := range totals {
		if t.Broker != nil {
			brokers[t.BrokerID] = *t.Broker
		}
	}
	batch := ""
	if f.BankFileBatch != nil {
		batch = *f.BankFileBatch
	}
	file, err := s.bank.Generate(f, batch, totals, brokers)
	if err != nil {
		return nil, err
	}

	if f.BankFilePath != nil && s.storage.Exists(*f.BankFilePath) {
		content, err := s.storage.Read(*f.BankFilePath)
		if err != nil {
			return nil, err
		}
		file.Content = content
	} else {
		logger.Warn("Bank file missing from storage, regenerated from totals", "fortnight_id", id)
	}
	return file, nil
}

// withFortnightLock serializes imports, discounts and closes of one fortnight
func withFortnightLock(ctx context.Context, locker cache.Locker, fortnightID uint, ttl time.Duration, fn func() error) error {
	lock, err := locker.Obtain(ctx, fmt.Sprintf("fortnight:%d", fortnightID), ttl)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release fortnight lock", "fortnight_id", fortnightID, "error", err)
		}
	}()
	return fn()
}
