package services

import (
	"errors"

	"github.com/sjperalta/comisiones-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound     = errors.New("registro no encontrado")
	ErrInvalidState = errors.New("transición de estado inválida")
)

// Fortnight and ledger errors
var (
	ErrInvalidFortnightState = errors.New("la quincena no está en estado DRAFT")
	ErrFortnightNotPaid      = errors.New("la quincena aún no ha sido pagada")
	ErrNoDraftFortnight      = errors.New("no existe una quincena en borrador")
	ErrInvalidAmount         = errors.New("el monto debe ser mayor a cero")
	ErrZeroBalance           = errors.New("el adelanto no tiene saldo pendiente")
	ErrNoCommissionAvailable = errors.New("el corredor no tiene comisión disponible para descontar")
	ErrAmountExceedsBalance  = errors.New("el monto excede el saldo del adelanto")
	ErrBrokerMismatch        = errors.New("el adelanto no pertenece al corredor")
)

// Ingestion errors
var (
	ErrEmptyFile        = errors.New("el archivo está vacío")
	ErrInvalidAgentCode = errors.New("código de agente inválido")
	ErrNotAgentCodes    = errors.New("la aseguradora no liquida por código de agente")
	ErrItemNotPending   = errors.New("el registro ya no está pendiente de identificar")
	ErrBrokerInactive   = errors.New("el corredor no está activo")
)

// Catalog errors
var (
	ErrInvalidPercent     = errors.New("el porcentaje debe estar entre 0 y 1")
	ErrInvalidAccountType = errors.New("tipo de cuenta inválido (savings o checking)")
)

// RevertResult is the outcome of reverting an advance discount. A blocked revert is
// not an error: the caller gets the payment that prevents it.
type RevertResult struct {
	Reverted          bool  `json:"reverted"`
	Blocked           bool  `json:"blocked"`
	BlockingPaymentID *uint `json:"blocking_payment_id,omitempty"`
	AdvanceID         uint  `json:"advance_id"`
	LogID             uint  `json:"log_id,omitempty"`
}

// notFound maps gorm's missing-row error to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// staleAsFortnightState maps a lost conditional update to ErrInvalidFortnightState
func staleAsFortnightState(err error) error {
	if errors.Is(err, repository.ErrStaleState) {
		return ErrInvalidFortnightState
	}
	return err
}
