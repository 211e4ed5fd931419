package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/services"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

const (
	JobProvisionFortnight = "provision_fortnight"
	JobSweepRetained      = "sweep_retained"
)

// FortnightProvisioner creates the DRAFT fortnight for a date
type FortnightProvisioner interface {
	EnsureFortnight(ctx context.Context, day time.Time) (*models.Fortnight, bool, error)
}

// RetainedSweeper attaches pending retained commissions to a DRAFT fortnight
type RetainedSweeper interface {
	AssociateRetained(ctx context.Context, fortnightID uint, userID uint) (*services.AssociateResult, error)
}

// ProvisionFortnight ensures the fortnight containing today exists. Near the end of a
// period the next one is provisioned as well so imports never wait for the tick.
func ProvisionFortnight(p FortnightProvisioner, now func() time.Time) Job {
	return func(ctx context.Context) error {
		today := now().UTC()
		f, _, err := p.EnsureFortnight(ctx, today)
		if err != nil {
			return err
		}
		if f.PeriodEnd.Sub(today) < 48*time.Hour {
			if _, _, err := p.EnsureFortnight(ctx, f.PeriodEnd.AddDate(0, 0, 1)); err != nil {
				return err
			}
		}
		return nil
	}
}

// SweepRetained moves pending retained commissions into the oldest DRAFT fortnight.
// Having no DRAFT fortnight is not a failure; the next run retries.
func SweepRetained(s RetainedSweeper) Job {
	return func(ctx context.Context) error {
		result, err := s.AssociateRetained(ctx, 0, 0)
		if errors.Is(err, services.ErrNoDraftFortnight) {
			logger.Debug("Retained sweep skipped: no DRAFT fortnight")
			return nil
		}
		if err != nil {
			return err
		}
		if result.Associated > 0 {
			logger.Info("Retained sweep done", "fortnight_id", result.FortnightID, "associated", result.Associated)
		}
		return nil
	}
}

// Register installs the recurring jobs
func Register(w *Worker, svcs *services.Services, provisionEvery, sweepEvery time.Duration) {
	w.ScheduleEveryImmediate(JobProvisionFortnight, provisionEvery, ProvisionFortnight(svcs.Fortnight, time.Now))
	w.ScheduleEvery(JobSweepRetained, sweepEvery, SweepRetained(svcs.Ledger))
}
