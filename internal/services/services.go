package services

import (
	"time"

	"github.com/sjperalta/comisiones-api/internal/cache"
	"github.com/sjperalta/comisiones-api/internal/config"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Audit     *AuditService
	Catalog   *CatalogService
	Ingestion *IngestionService
	Fortnight *FortnightService
	Ledger    *LedgerService
	Report    *ReportService
	Registry  *parsers.Registry
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, storage *storage.LocalStorage, store cache.Cache, locker cache.Locker, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos.Audit)
	catalogSvc := NewCatalogService(repos.Broker, store, cfg.CatalogCacheTTL)
	aggregator := NewAggregator(repos)
	registry := parsers.Default()
	extractor := extract.Default(extract.Options{PdfToTextPath: cfg.PdfToTextPath, OCRCommand: cfg.OCRCommand})
	codes := NewCodeValidator(cfg.AssaCodePrefix, cfg.AssaExcludedCodes)
	bank := NewBankFileGenerator(cfg.BankOriginAccount, cfg.BankFileDescription)
	lockTTL := cfg.ImportTimeout + time.Minute

	return &Services{
		Audit:   auditSvc,
		Catalog: catalogSvc,
		Ingestion: NewIngestionService(repos, registry, extractor, catalogSvc, codes, storage, locker, auditSvc,
			cfg.ImportTimeout, cfg.ReconciliationTolerance),
		Fortnight: NewFortnightService(repos, aggregator, bank, storage, locker, lockTTL, auditSvc),
		Ledger:    NewLedgerService(repos, aggregator, locker, lockTTL, auditSvc),
		Report:    NewReportService(repos, aggregator),
		Registry:  registry,
	}
}
