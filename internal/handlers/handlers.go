package handlers

import (
	"github.com/sjperalta/comisiones-api/internal/jobs"
	"github.com/sjperalta/comisiones-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Import    *ImportHandler
	Fortnight *FortnightHandler
	Ledger    *LedgerHandler
	Broker    *BrokerHandler
	Audit     *AuditHandler
	Job       *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, worker *jobs.Worker, maxUploadBytes int64) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(svcs.Registry),
		Import:    NewImportHandler(svcs.Ingestion, maxUploadBytes),
		Fortnight: NewFortnightHandler(svcs.Fortnight, svcs.Report),
		Ledger:    NewLedgerHandler(svcs.Ledger),
		Broker:    NewBrokerHandler(svcs.Catalog),
		Audit:     NewAuditHandler(svcs.Audit),
		Job:       NewJobHandler(worker),
	}
}
