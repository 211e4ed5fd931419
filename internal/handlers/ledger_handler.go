package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/middleware"
	"github.com/sjperalta/comisiones-api/internal/services"
)

type LedgerHandler struct {
	ledger *services.LedgerService
}

func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// DiscountRequest is either an advance discount (advance_id) or an administrative one (broker_id + concept)
type DiscountRequest struct {
	AdvanceID   uint            `json:"advance_id" validate:"required_without=BrokerID"`
	BrokerID    uint            `json:"broker_id" validate:"required_without=AdvanceID"`
	Concept     string          `json:"concept" validate:"required_with=BrokerID,max=200"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

// @Summary Apply discount
// @Description Withhold an advance repayment or add an administrative discount in a DRAFT fortnight
// @Tags Ledger
// @Accept json
// @Produce json
// @Param fortnight_id path int true "Fortnight ID"
// @Param body body DiscountRequest true "Discount"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/discounts [post]
func (h *LedgerHandler) Discount(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	var req DiscountRequest
	if err := bindAndValidate(c, "discount", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.GetUserID(c)

	if req.AdvanceID != 0 {
		log, err := h.ledger.ApplyAdvanceDiscount(c.Request.Context(), services.ApplyDiscountInput{
			FortnightID: id,
			AdvanceID:   req.AdvanceID,
			BrokerID:    req.BrokerID,
			Amount:      req.Amount,
			PaymentDate: paymentDate,
			UserID:      userID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"advance_log": log,
			"requested":   req.Amount,
			"applied":     log.Amount,
			"capped":      log.Amount.LessThan(req.Amount),
		})
		return
	}

	discount, err := h.ledger.AddAdminDiscount(c.Request.Context(), services.AdminDiscountInput{
		FortnightID: id,
		BrokerID:    req.BrokerID,
		Concept:     req.Concept,
		Amount:      req.Amount,
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"discount":  discount,
		"requested": req.Amount,
		"applied":   discount.Amount,
		"capped":    discount.Amount.LessThan(req.Amount),
	})
}

type RevertRequest struct {
	AdvanceID   uint   `json:"advance_id" validate:"required"`
	PaymentDate string `json:"payment_date" validate:"required,datetime=2006-01-02"`
}

// @Summary Revert advance discount
// @Description Remove the repayment recorded for an advance on a date. A paid direct repayment blocks the revert.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param body body RevertRequest true "Advance and payment date"
// @Success 200 {object} services.RevertResult
// @Failure 409 {object} services.RevertResult
// @Security BearerAuth
// @Router /advances/revert [post]
func (h *LedgerHandler) Revert(c *gin.Context) {
	var req RevertRequest
	if err := bindAndValidate(c, "revert", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ledger.RevertAdvanceDiscount(c.Request.Context(), req.AdvanceID, *paymentDate, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Blocked {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "El descuento no puede revertirse: existe un abono pagado para este adelanto",
			"result": result,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "message": "Descuento revertido"})
}

type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Reference   string          `json:"reference" validate:"max=120"`
}

// @Summary Register advance repayment
// @Description Record a broker's direct repayment of an advance, pending bank confirmation
// @Tags Ledger
// @Accept json
// @Produce json
// @Param advance_id path int true "Advance ID"
// @Param body body PaymentRequest true "Payment"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /advances/{advance_id}/payments [post]
func (h *LedgerHandler) RegisterPayment(c *gin.Context) {
	advanceID, err := paramID(c, "advance_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req PaymentRequest
	if err := bindAndValidate(c, "payment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.ledger.RegisterPayment(c.Request.Context(), services.RegisterPaymentInput{
		AdvanceID:   advanceID,
		Amount:      req.Amount,
		PaymentDate: *paymentDate,
		Reference:   req.Reference,
		UserID:      middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// @Summary Conciliate repayment
// @Description Apply a registered repayment to its advance
// @Tags Ledger
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /pending-payments/{payment_id}/conciliate [post]
func (h *LedgerHandler) Conciliate(c *gin.Context) {
	id, err := paramID(c, "payment_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := h.ledger.ConciliatePayment(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment, "message": "Abono conciliado"})
}

// @Summary Mark repayment paid
// @Description Confirm a conciliated repayment as received
// @Tags Ledger
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /pending-payments/{payment_id}/pay [post]
func (h *LedgerHandler) Pay(c *gin.Context) {
	id, err := paramID(c, "payment_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := h.ledger.PayPayment(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment, "message": "Abono pagado"})
}

type AssociateRequest struct {
	FortnightID uint `json:"fortnight_id"`
}

// @Summary Associate retained commissions
// @Description Attach every pending retained commission to a DRAFT fortnight (default: the oldest)
// @Tags Ledger
// @Accept json
// @Produce json
// @Param body body AssociateRequest false "Target fortnight"
// @Success 200 {object} services.AssociateResult
// @Security BearerAuth
// @Router /retained/associate [post]
func (h *LedgerHandler) AssociateRetained(c *gin.Context) {
	var req AssociateRequest
	if c.Request.ContentLength > 0 {
		if err := bindAndValidate(c, "retained", &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.ledger.AssociateRetained(c.Request.Context(), req.FortnightID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
