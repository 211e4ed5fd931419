package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/config"
	"github.com/sjperalta/comisiones-api/internal/database"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fedpaStatement = `No. Póliza,Asegurado,Ramo,Prima,% Comisión,Comisión
05-01-0000100,Juan Perez,AUTO,500.00,20,100.00
05-01-0000200,Maria Gomez,AUTO,250.00,20,50.00
TOTAL,,,,,150.00
`

const operatorID uint = 1

type testEnv struct {
	ctx       context.Context
	svc       *Services
	repos     *repository.Repositories
	root      string
	fortnight *models.Fortnight
	broker    *models.Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	root := t.TempDir()
	st, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	cfg := &config.Config{
		CatalogCacheTTL:         time.Minute,
		ImportTimeout:           30 * time.Second,
		ReconciliationTolerance: decimal.NewFromFloat(0.05),
		AssaCodePrefix:          "PJ750",
		AssaExcludedCodes:       []string{"PJ75999"},
		BankFileDescription:     "PAGO COMISIONES",
	}
	repos := repository.NewRepositories(db)
	env := &testEnv{
		ctx:   context.Background(),
		svc:   NewServices(repos, st, cache.NewMemoryCache(100), cache.NewLocalLocker(5*time.Second), cfg),
		repos: repos,
		root:  root,
	}

	env.broker = env.addBroker(t, "B001", "Corredora Uno", "0.80", false)
	require.NoError(t, repos.Policy.Create(env.ctx, &models.Policy{
		Number: "05-01-0000100", InsurerKey: "fedpa", ProductCode: "AUTO", BrokerID: &env.broker.ID,
	}))

	f, created, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, created)
	env.fortnight = f
	return env
}

func (e *testEnv) addBroker(t *testing.T, code, name, percent string, onHold bool) *models.Broker {
	t.Helper()
	b := &models.Broker{
		Code:              code,
		Name:              name,
		PercentDefault:    dec(percent),
		OnHold:            onHold,
		Active:            true,
		BankRouting:       "71",
		BankAccountNumber: "04-00-" + code,
		BankAccountType:   models.AccountTypeSavings,
	}
	require.NoError(t, e.repos.Broker.Create(e.ctx, b))
	require.NoError(t, e.svc.Catalog.Reset(e.ctx))
	return b
}

func (e *testEnv) importFedpa(t *testing.T, fortnightID uint) *ImportResult {
	t.Helper()
	res, err := e.svc.Ingestion.Import(e.ctx, ImportInput{
		Insurer:     "fedpa",
		FortnightID: fortnightID,
		FileName:    "fedpa_marzo.csv",
		Data:        []byte(fedpaStatement),
		UserID:      operatorID,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) addAdvance(t *testing.T, brokerID uint, amount string) *models.Advance {
	t.Helper()
	adv := &models.Advance{BrokerID: brokerID, Amount: dec(amount), Status: models.AdvanceStatusPending}
	require.NoError(t, e.repos.Advance.Create(e.ctx, adv))
	return adv
}

func TestIngestion_MatchedAndPendingReconcile(t *testing.T) {
	env := newTestEnv(t)

	res := env.importFedpa(t, env.fortnight.ID)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.PendingIdentify)
	assert.Equal(t, "80.00", res.MatchedTotal.StringFixed(2))
	assert.Equal(t, "50.00", res.PendingTotal.StringFixed(2))
	assert.Equal(t, "150.00", res.ComputedTotal.StringFixed(2))
	assert.Equal(t, "150.00", res.DeclaredTotal.StringFixed(2))
	assert.True(t, res.Variance.IsZero())
	assert.True(t, res.Reconciled)
	assert.Equal(t, "csv", res.Backend)

	imp, err := env.svc.Ingestion.FindImport(env.ctx, res.ImportID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusProcessed, imp.Status)
	require.Len(t, imp.Items, 2)

	groups, err := env.svc.Ingestion.PendingItems(env.ctx, "fedpa")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "05-01-0000200", groups[0].RawIdentifier)
	assert.Equal(t, "50.00", groups[0].Total.StringFixed(2))
}

func TestIngestion_DeclaredTotalMismatchIsAccepted(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Ingestion.Import(env.ctx, ImportInput{
		Insurer:       "fedpa",
		FortnightID:   env.fortnight.ID,
		FileName:      "fedpa.csv",
		Data:          []byte(fedpaStatement),
		DeclaredTotal: decimal.NewNullDecimal(dec("175.00")),
	})
	require.NoError(t, err)
	assert.False(t, res.Reconciled)
	assert.Equal(t, "-25.00", res.Variance.StringFixed(2))
	assert.NotEmpty(t, res.Warnings)

	imp, err := env.svc.Ingestion.FindImport(env.ctx, res.ImportID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusMismatch, imp.Status)
}

func TestIngestion_FlagsBrokerAssignedAfterPeriod(t *testing.T) {
	env := newTestEnv(t)
	late := env.addBroker(t, "B002", "Corredora Dos", "0.50", false)
	assigned := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.repos.Policy.Create(env.ctx, &models.Policy{
		Number: "05-01-0000200", InsurerKey: "fedpa", ProductCode: "AUTO", BrokerID: &late.ID, BrokerAssignedAt: &assigned,
	}))

	res := env.importFedpa(t, env.fortnight.ID)
	assert.Equal(t, 2, res.Matched)

	imp, err := env.svc.Ingestion.FindImport(env.ctx, res.ImportID)
	require.NoError(t, err)
	for _, item := range imp.Items {
		flag, ok := item.Metadata[models.MetaBrokerAssignedAfterPeriod]
		if item.PolicyNumber == "05-01-0000200" {
			assert.True(t, ok)
			assert.Equal(t, "2024-04-02", flag)
			require.NotNil(t, item.BrokerID)
			assert.Equal(t, late.ID, *item.BrokerID)
			continue
		}
		assert.False(t, ok, "policy %s", item.PolicyNumber)
	}
}

func TestIngestion_AgentCodes(t *testing.T) {
	env := newTestEnv(t)
	code := "PJ75012"
	b := &models.Broker{Code: "B010", Name: "Corredores Unidos", AssaCode: &code, PercentDefault: dec("0.50"), Active: true}
	require.NoError(t, env.repos.Broker.Create(env.ctx, b))
	require.NoError(t, env.svc.Catalog.Reset(env.ctx))

	data, err := os.ReadFile(filepath.Join("..", "parsers", "testdata", "assa.csv"))
	require.NoError(t, err)

	res, err := env.svc.Ingestion.ImportAgentCodes(env.ctx, ImportInput{
		FortnightID: env.fortnight.ID,
		FileName:    "assa.csv",
		Data:        data,
	})
	require.NoError(t, err)

	assert.Equal(t, "assa", res.Insurer)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.PendingIdentify)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, "1250.50", res.MatchedTotal.StringFixed(2))
	assert.Equal(t, "1235.25", res.ComputedTotal.StringFixed(2))
	assert.False(t, res.Reconciled)

	breakdown, err := env.svc.Fortnight.aggregator.Compute(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	bb := breakdown.Broker(b.ID)
	require.NotNil(t, bb)
	assert.Equal(t, "1250.50", bb.CodeAmount.StringFixed(2))
	assert.Len(t, bb.Codes, 1)
	assert.Empty(t, bb.Carriers)
}

func TestIngestion_AgentCodesRejectsPolicyCarrier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Ingestion.ImportAgentCodes(env.ctx, ImportInput{
		Insurer: "fedpa", FortnightID: env.fortnight.ID, FileName: "f.csv", Data: []byte(fedpaStatement),
	})
	assert.ErrorIs(t, err, ErrNotAgentCodes)
}

func TestIngestion_Failures(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unknown layout", func(t *testing.T) {
		_, err := env.svc.Ingestion.Import(env.ctx, ImportInput{
			Insurer: "fedpa", FortnightID: env.fortnight.ID, FileName: "otro.csv", Data: []byte("a,b\n1,2\n"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, parsers.ErrNoRows))
		var perr *parsers.ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "fedpa", perr.Insurer)
		assert.NotEmpty(t, perr.Snippet)
	})

	t.Run("unsupported file", func(t *testing.T) {
		_, err := env.svc.Ingestion.Import(env.ctx, ImportInput{
			Insurer: "sura", FortnightID: env.fortnight.ID, FileName: "scan.png", Data: []byte{0x89, 'P', 'N', 'G'},
		})
		assert.ErrorIs(t, err, extract.ErrExtractionFailed)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := env.svc.Ingestion.Import(env.ctx, ImportInput{Insurer: "fedpa", FortnightID: env.fortnight.ID, FileName: "x.csv"})
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("unknown insurer", func(t *testing.T) {
		_, err := env.svc.Ingestion.Import(env.ctx, ImportInput{Insurer: "acme", FortnightID: env.fortnight.ID, FileName: "x.csv", Data: []byte("x")})
		assert.ErrorIs(t, err, parsers.ErrUnknownInsurer)
	})

	imports, err := env.repos.Import.ListByFortnight(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestFortnight_RecalculateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	first, err := env.svc.Fortnight.Recalculate(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	second, err := env.svc.Fortnight.Recalculate(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Totals(), second.Totals())

	totals, err := env.repos.Fortnight.ListTotals(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "80.00", totals[0].GrossAmount.StringFixed(2))
	assert.Equal(t, "80.00", totals[0].NetAmount.StringFixed(2))
	assert.Equal(t, "80.00", totals[0].ByInsurer["fedpa"])
}

func TestLedger_DiscountCappedAtBalance(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "20")

	log, err := env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("30"), UserID: operatorID,
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", log.Amount.StringFixed(2))

	stored, err := env.repos.Advance.FindByID(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceStatusPaid, stored.Status)

	balance, err := env.svc.Ledger.Balance(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("5"),
	})
	assert.ErrorIs(t, err, ErrZeroBalance)

	summary, err := env.svc.Fortnight.Summary(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	bb := summary.Breakdown.Broker(env.broker.ID)
	require.NotNil(t, bb)
	assert.Equal(t, "60.00", bb.Net.StringFixed(2))
}

func TestLedger_DiscountCappedAtAvailableCommission(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "500")

	log, err := env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "80.00", log.Amount.StringFixed(2))

	_, err = env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("1"),
	})
	assert.ErrorIs(t, err, ErrNoCommissionAvailable)
}

func TestLedger_ConcurrentDiscountsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "20")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		day := env.fortnight.PeriodStart.AddDate(0, 0, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
				FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("15"), PaymentDate: &day,
			})
		}()
	}
	wg.Wait()

	logs, err := env.repos.Advance.ListLogs(env.ctx, adv.ID)
	require.NoError(t, err)
	applied := decimal.Zero
	for _, l := range logs {
		applied = applied.Add(l.Amount)
	}
	assert.Equal(t, "20.00", applied.StringFixed(2))
}

func TestLedger_RevertRestoresBalance(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "20")

	_, err := env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("20"),
	})
	require.NoError(t, err)

	res, err := env.svc.Ledger.RevertAdvanceDiscount(env.ctx, adv.ID, env.fortnight.PeriodEnd, operatorID)
	require.NoError(t, err)
	assert.True(t, res.Reverted)
	assert.False(t, res.Blocked)

	balance, err := env.svc.Ledger.Balance(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", balance.StringFixed(2))

	stored, err := env.repos.Advance.FindByID(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceStatusPending, stored.Status)

	_, err = env.svc.Ledger.RevertAdvanceDiscount(env.ctx, adv.ID, env.fortnight.PeriodEnd, operatorID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_RevertBlockedByPaidPayment(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "20")

	payment, err := env.svc.Ledger.RegisterPayment(env.ctx, RegisterPaymentInput{
		AdvanceID: adv.ID, Amount: dec("5"), PaymentDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Reference: "DEP-991",
	})
	require.NoError(t, err)
	_, err = env.svc.Ledger.ConciliatePayment(env.ctx, payment.ID, operatorID)
	require.NoError(t, err)
	_, err = env.svc.Ledger.PayPayment(env.ctx, payment.ID, operatorID)
	require.NoError(t, err)

	_, err = env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("10"),
	})
	require.NoError(t, err)

	res, err := env.svc.Ledger.RevertAdvanceDiscount(env.ctx, adv.ID, env.fortnight.PeriodEnd, operatorID)
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.False(t, res.Reverted)
	require.NotNil(t, res.BlockingPaymentID)
	assert.Equal(t, payment.ID, *res.BlockingPaymentID)

	balance, err := env.svc.Ledger.Balance(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance.StringFixed(2))
}

func TestLedger_PaymentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	adv := env.addAdvance(t, env.broker.ID, "50")
	paidOn := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.Ledger.RegisterPayment(env.ctx, RegisterPaymentInput{AdvanceID: adv.ID, Amount: dec("60"), PaymentDate: paidOn})
	assert.ErrorIs(t, err, ErrAmountExceedsBalance)

	payment, err := env.svc.Ledger.RegisterPayment(env.ctx, RegisterPaymentInput{AdvanceID: adv.ID, Amount: dec("50"), PaymentDate: paidOn})
	require.NoError(t, err)

	_, err = env.svc.Ledger.PayPayment(env.ctx, payment.ID, operatorID)
	assert.ErrorIs(t, err, ErrInvalidState)

	payment, err = env.svc.Ledger.ConciliatePayment(env.ctx, payment.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, models.PendingPaymentStatusConciliated, payment.Status)
	require.NotNil(t, payment.AdvanceLogID)

	stored, err := env.repos.Advance.FindByID(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceStatusPaid, stored.Status)

	// reverting the conciliated repayment puts the payment back to pending
	res, err := env.svc.Ledger.RevertAdvanceDiscount(env.ctx, adv.ID, paidOn, operatorID)
	require.NoError(t, err)
	assert.True(t, res.Reverted)

	reloaded, err := env.repos.PendingPayment.FindByID(env.ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PendingPaymentStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.AdvanceLogID)
}

func TestLedger_AdminDiscountCappedAtAvailable(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	d, err := env.svc.Ledger.AddAdminDiscount(env.ctx, AdminDiscountInput{
		FortnightID: env.fortnight.ID, BrokerID: env.broker.ID, Concept: "Carnet extraviado", Amount: dec("95"),
	})
	require.NoError(t, err)
	assert.Equal(t, "80.00", d.Amount.StringFixed(2))

	breakdown, err := env.svc.Fortnight.Recalculate(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	bb := breakdown.Broker(env.broker.ID)
	require.NotNil(t, bb)
	assert.True(t, bb.Net.IsZero())
	assert.Equal(t, "80.00", bb.DiscountTotal.StringFixed(2))
	assert.True(t, bb.Shortfall.IsZero())
	require.Len(t, bb.Discounts, 1)
	assert.Equal(t, DiscountKindAdmin, bb.Discounts[0].Kind)

	totals, err := env.repos.Fortnight.ListTotals(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.True(t, totals[0].GrossAmount.Sub(totals[0].DiscountTotal).Equal(totals[0].NetAmount),
		"net %s gross %s discounts %s", totals[0].NetAmount, totals[0].GrossAmount, totals[0].DiscountTotal)

	_, err = env.svc.Ledger.AddAdminDiscount(env.ctx, AdminDiscountInput{
		FortnightID: env.fortnight.ID, BrokerID: env.broker.ID, Concept: "otro", Amount: dec("1"),
	})
	assert.ErrorIs(t, err, ErrNoCommissionAvailable)
}

// beforeLock runs fn once, right before the first lock is handed out
type beforeLock struct {
	cache.Locker
	once sync.Once
	fn   func()
}

func (l *beforeLock) Obtain(ctx context.Context, key string, ttl time.Duration) (cache.Lock, error) {
	l.once.Do(l.fn)
	return l.Locker.Obtain(ctx, key, ttl)
}

func TestLedger_AssociateRetainedRejectsFortnightClosedMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	next, _, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	retained := &models.RetainedCommission{
		BrokerID: env.broker.ID, SourceFortnightID: env.fortnight.ID, Amount: dec("25"),
		Reason: HoldReasonOnHold, Status: models.RetainedStatusPending,
	}
	require.NoError(t, env.repos.Retained.Create(env.ctx, retained))

	env.svc.Ledger.locker = &beforeLock{Locker: env.svc.Ledger.locker, fn: func() {
		_, err := env.svc.Fortnight.Close(env.ctx, next.ID, operatorID)
		require.NoError(t, err)
	}}

	_, err = env.svc.Ledger.AssociateRetained(env.ctx, next.ID, operatorID)
	assert.ErrorIs(t, err, ErrInvalidFortnightState)

	stored, err := env.repos.Retained.FindByID(env.ctx, retained.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetainedStatusPending, stored.Status)
	assert.Nil(t, stored.FortnightID)

	// the repository refuses a PAID target on its own
	_, err = env.repos.Retained.Associate(env.ctx, []uint{retained.ID}, next.ID)
	assert.ErrorIs(t, err, repository.ErrStaleState)
}

func TestLedger_RevertBlockedByPaymentConfirmedWhileWaiting(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	adv := env.addAdvance(t, env.broker.ID, "20")

	payment, err := env.svc.Ledger.RegisterPayment(env.ctx, RegisterPaymentInput{
		AdvanceID: adv.ID, Amount: dec("5"), PaymentDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Reference: "DEP-992",
	})
	require.NoError(t, err)
	_, err = env.svc.Ledger.ConciliatePayment(env.ctx, payment.ID, operatorID)
	require.NoError(t, err)
	_, err = env.svc.Ledger.ApplyAdvanceDiscount(env.ctx, ApplyDiscountInput{
		FortnightID: env.fortnight.ID, AdvanceID: adv.ID, Amount: dec("10"),
	})
	require.NoError(t, err)

	env.svc.Ledger.locker = &beforeLock{Locker: env.svc.Ledger.locker, fn: func() {
		_, err := env.svc.Ledger.PayPayment(env.ctx, payment.ID, operatorID)
		require.NoError(t, err)
	}}

	res, err := env.svc.Ledger.RevertAdvanceDiscount(env.ctx, adv.ID, env.fortnight.PeriodEnd, operatorID)
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.False(t, res.Reverted)
	require.NotNil(t, res.BlockingPaymentID)
	assert.Equal(t, payment.ID, *res.BlockingPaymentID)

	balance, err := env.svc.Ledger.Balance(env.ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance.StringFixed(2))

	// the transaction checks again on its own
	log, err := env.repos.Advance.FindLog(env.ctx, adv.ID, env.fortnight.PeriodEnd)
	require.NoError(t, err)
	advance, err := env.repos.Advance.FindByID(env.ctx, adv.ID)
	require.NoError(t, err)
	err = env.repos.Advance.RevertLog(env.ctx, log, advance, nil)
	var paidErr *repository.PaidPaymentError
	require.ErrorAs(t, err, &paidErr)
	assert.Equal(t, payment.ID, paidErr.PaymentID)

	_, err = env.svc.Ledger.PayPayment(env.ctx, payment.ID, operatorID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

const fedpaReversal = `No. Póliza,Asegurado,Ramo,Prima,% Comisión,Comisión
05-01-0000100,Juan Perez,AUTO,-300.00,20,(60.00)
TOTAL,,,,,(60.00)
`

func (e *testEnv) importReversal(t *testing.T) *ImportResult {
	t.Helper()
	res, err := e.svc.Ingestion.Import(e.ctx, ImportInput{
		Insurer: "fedpa", FortnightID: e.fortnight.ID, FileName: "fedpa_reverso.csv", Data: []byte(fedpaReversal),
	})
	require.NoError(t, err)
	return res
}

func TestIngestion_NegativeRowReducesBrokerTotal(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	res := env.importReversal(t)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, "-60.00", res.ComputedTotal.StringFixed(2))
	assert.Equal(t, "-48.00", res.MatchedTotal.StringFixed(2))
	assert.True(t, res.Reconciled)

	breakdown, err := env.svc.Fortnight.Recalculate(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	bb := breakdown.Broker(env.broker.ID)
	require.NotNil(t, bb)
	assert.Equal(t, "32.00", bb.Gross.StringFixed(2))
	assert.Equal(t, "32.00", bb.Net.StringFixed(2))
	assert.Equal(t, 2, bb.ItemCount)

	totals, err := env.repos.Fortnight.ListTotals(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "32.00", totals[0].NetAmount.StringFixed(2))
}

func TestFortnight_ReversalAfterDiscountRecordsShortfall(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)
	_, err := env.svc.Ledger.AddAdminDiscount(env.ctx, AdminDiscountInput{
		FortnightID: env.fortnight.ID, BrokerID: env.broker.ID, Concept: "Uniforme", Amount: dec("80"),
	})
	require.NoError(t, err)

	env.importReversal(t)

	breakdown, err := env.svc.Fortnight.Recalculate(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	bb := breakdown.Broker(env.broker.ID)
	require.NotNil(t, bb)
	assert.True(t, bb.Net.IsZero())
	assert.Equal(t, "48.00", bb.Shortfall.StringFixed(2))
	assert.True(t, bb.Gross.Sub(bb.DiscountTotal).Add(bb.Shortfall).Equal(bb.Net))

	totals := breakdown.Totals()
	require.Len(t, totals, 1)
	assert.Equal(t, "48.00", totals[0].Discounts["shortfall"])
}

func TestFortnight_CloseOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	res, err := env.svc.Fortnight.Close(env.ctx, env.fortnight.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, models.FortnightStatusPaid, res.Fortnight.Status)
	require.Len(t, res.BankFile.Rows, 1)
	assert.Equal(t, "80.00", res.BankFile.Total.StringFixed(2))

	_, err = env.svc.Fortnight.Close(env.ctx, env.fortnight.ID, operatorID)
	assert.ErrorIs(t, err, ErrInvalidFortnightState)

	files, err := filepath.Glob(filepath.Join(env.root, storage.DirBankFiles, "*", "*", "*"))
	require.NoError(t, err)
	assert.Len(t, files, 1)

	file, err := env.svc.Fortnight.BankFile(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	assert.Equal(t, res.BankFile.Content, file.Content)

	_, err = env.svc.Ingestion.Import(env.ctx, ImportInput{
		Insurer: "fedpa", FortnightID: env.fortnight.ID, FileName: "tarde.csv", Data: []byte(fedpaStatement),
	})
	assert.ErrorIs(t, err, ErrInvalidFortnightState)

	_, err = env.svc.Ledger.AddAdminDiscount(env.ctx, AdminDiscountInput{
		FortnightID: env.fortnight.ID, BrokerID: env.broker.ID, Concept: "tarde", Amount: dec("1"),
	})
	assert.ErrorIs(t, err, ErrInvalidFortnightState)
}

func TestFortnight_BankFileRequiresPaid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Fortnight.BankFile(env.ctx, env.fortnight.ID)
	assert.ErrorIs(t, err, ErrFortnightNotPaid)
}

func TestFortnight_ResolvedItemPromotedOnClose(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	groups, err := env.svc.Ingestion.PendingItems(env.ctx, "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	pending := groups[0].Items[0]

	item, err := env.svc.Ingestion.Resolve(env.ctx, ResolveInput{ItemID: pending.ID, BrokerID: env.broker.ID, UserID: operatorID})
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusStaged, item.Status)
	assert.Equal(t, "40.00", item.BrokerAmount.StringFixed(2))

	res, err := env.svc.Fortnight.Close(env.ctx, env.fortnight.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, res.Totals, 1)
	assert.Equal(t, "120.00", res.Totals[0].NetAmount.StringFixed(2))

	promoted, err := env.repos.Item.FindByID(env.ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusMatched, promoted.Status)

	_, err = env.svc.Ingestion.Resolve(env.ctx, ResolveInput{ItemID: item.ID, BrokerID: env.broker.ID})
	assert.ErrorIs(t, err, ErrItemNotPending)
}

func TestFortnight_HeldBrokerCarriedToNextFortnight(t *testing.T) {
	env := newTestEnv(t)
	held := env.addBroker(t, "B002", "Corredor Retenido", "0.50", true)
	require.NoError(t, env.repos.Policy.Create(env.ctx, &models.Policy{
		Number: "05-01-0000200", InsurerKey: "fedpa", BrokerID: &held.ID,
	}))
	env.importFedpa(t, env.fortnight.ID)

	first, err := env.svc.Fortnight.Close(env.ctx, env.fortnight.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, first.Retained, 1)
	assert.Equal(t, "25.00", first.Retained[0].Amount.StringFixed(2))
	assert.Len(t, first.BankFile.Rows, 1)

	next, created, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, created)

	held.OnHold = false
	require.NoError(t, env.repos.Broker.Update(env.ctx, held))

	assoc, err := env.svc.Ledger.AssociateRetained(env.ctx, 0, operatorID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, assoc.FortnightID)
	assert.EqualValues(t, 1, assoc.Associated)

	second, err := env.svc.Fortnight.Close(env.ctx, next.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, second.BankFile.Rows, 1)
	assert.Equal(t, held.ID, second.BankFile.Rows[0].BrokerID)
	assert.Equal(t, "25.00", second.BankFile.Total.StringFixed(2))

	retained, err := env.repos.Retained.FindByID(env.ctx, first.Retained[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RetainedStatusPaid, retained.Status)

	_, err = env.svc.Ledger.AssociateRetained(env.ctx, 0, operatorID)
	assert.ErrorIs(t, err, ErrNoDraftFortnight)
}

func TestFortnight_StillHeldRetainedReturnsToPending(t *testing.T) {
	env := newTestEnv(t)
	held := env.addBroker(t, "B002", "Corredor Retenido", "0.50", true)
	require.NoError(t, env.repos.Policy.Create(env.ctx, &models.Policy{
		Number: "05-01-0000200", InsurerKey: "fedpa", BrokerID: &held.ID,
	}))
	env.importFedpa(t, env.fortnight.ID)

	first, err := env.svc.Fortnight.Close(env.ctx, env.fortnight.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, first.Retained, 1)
	retainedID := first.Retained[0].ID

	next, _, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assoc, err := env.svc.Ledger.AssociateRetained(env.ctx, next.ID, operatorID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, assoc.Associated)

	breakdown, err := env.svc.Fortnight.Recalculate(env.ctx, next.ID)
	require.NoError(t, err)
	bb := breakdown.Broker(held.ID)
	require.NotNil(t, bb)
	assert.Equal(t, []uint{retainedID}, bb.StillHeldIDs)
	assert.True(t, bb.Gross.IsZero())

	// broker still on hold: the carried amount is neither paid nor duplicated
	second, err := env.svc.Fortnight.Close(env.ctx, next.ID, operatorID)
	require.NoError(t, err)
	assert.Empty(t, second.Retained)
	assert.Empty(t, second.BankFile.Rows)

	stored, err := env.repos.Retained.FindByID(env.ctx, retainedID)
	require.NoError(t, err)
	assert.Equal(t, models.RetainedStatusPending, stored.Status)
	assert.Nil(t, stored.FortnightID)
	assert.Equal(t, "25.00", stored.Amount.StringFixed(2))

	// released once the hold is lifted
	third, _, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	held.OnHold = false
	require.NoError(t, env.repos.Broker.Update(env.ctx, held))
	_, err = env.svc.Ledger.AssociateRetained(env.ctx, third.ID, operatorID)
	require.NoError(t, err)

	last, err := env.svc.Fortnight.Close(env.ctx, third.ID, operatorID)
	require.NoError(t, err)
	require.Len(t, last.BankFile.Rows, 1)
	assert.Equal(t, "25.00", last.BankFile.Total.StringFixed(2))

	stored, err = env.repos.Retained.FindByID(env.ctx, retainedID)
	require.NoError(t, err)
	assert.Equal(t, models.RetainedStatusPaid, stored.Status)
}

func TestFortnight_EnsureIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	again, created, err := env.svc.Fortnight.EnsureFortnight(env.ctx, time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, env.fortnight.ID, again.ID)
	assert.Equal(t, "2024-03 Q1", again.Label())
}

func TestReports_Render(t *testing.T) {
	env := newTestEnv(t)
	env.importFedpa(t, env.fortnight.ID)

	xlsx, name, err := env.svc.Report.FortnightWorkbook(env.ctx, env.fortnight.ID)
	require.NoError(t, err)
	assert.Equal(t, "comisiones_2024-03_Q1.xlsx", name)
	assert.Equal(t, []byte("PK"), xlsx[:2])

	pdf, name, err := env.svc.Report.BrokerStatement(env.ctx, env.fortnight.ID, env.broker.ID)
	require.NoError(t, err)
	assert.Equal(t, "estado_B001_2024-03_Q1.pdf", name)
	assert.Equal(t, []byte("%PDF"), pdf[:4])
}
