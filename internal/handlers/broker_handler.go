package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/services"
)

type BrokerHandler struct {
	catalog *services.CatalogService
}

func NewBrokerHandler(catalog *services.CatalogService) *BrokerHandler {
	return &BrokerHandler{catalog: catalog}
}

// @Summary List brokers
// @Tags Brokers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Name or code"
// @Param on_hold query bool false "Only brokers on hold"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /brokers [get]
func (h *BrokerHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["on_hold"] = c.Query("on_hold")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")

	brokers, total, err := h.catalog.ListBrokers(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brokers": brokers, "pagination": gin.H{"total": total, "page": query.Page, "per_page": query.PerPage}})
}

type UpdateBrokerRequest struct {
	PercentDefault    *decimal.Decimal `json:"percent_default"`
	OnHold            *bool            `json:"on_hold"`
	Active            *bool            `json:"active"`
	BankName          *string          `json:"bank_name" validate:"omitempty,max=120"`
	BankRouting       *string          `json:"bank_routing" validate:"omitempty,max=20"`
	BankAccountNumber *string          `json:"bank_account_number" validate:"omitempty,max=40"`
	BankAccountType   *string          `json:"bank_account_type"`
}

// @Summary Update broker
// @Description Change percent, hold flag or bank account. The catalog cache is reset.
// @Tags Brokers
// @Accept json
// @Produce json
// @Param broker_id path int true "Broker ID"
// @Param body body UpdateBrokerRequest true "Changes"
// @Success 200 {object} models.Broker
// @Security BearerAuth
// @Router /brokers/{broker_id} [patch]
func (h *BrokerHandler) Update(c *gin.Context) {
	id, err := paramID(c, "broker_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req UpdateBrokerRequest
	if err := bindAndValidate(c, "broker", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	broker, err := h.catalog.UpdateBroker(c.Request.Context(), id, services.BrokerUpdate(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"broker": broker})
}

type CreateOverrideRequest struct {
	Insurer     string          `json:"insurer" validate:"required"`
	ProductCode string          `json:"product_code" validate:"max=30"`
	BrokerID    *uint           `json:"broker_id"`
	Percent     decimal.Decimal `json:"percent"`
}

// @Summary Create commission override
// @Description Percent for a carrier, optionally narrowed to a product and a broker
// @Tags Brokers
// @Accept json
// @Produce json
// @Param body body CreateOverrideRequest true "Override"
// @Success 201 {object} models.CommissionOverride
// @Security BearerAuth
// @Router /overrides [post]
func (h *BrokerHandler) CreateOverride(c *gin.Context) {
	var req CreateOverrideRequest
	if err := bindAndValidate(c, "override", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o := &models.CommissionOverride{
		InsurerKey:  req.Insurer,
		ProductCode: req.ProductCode,
		BrokerID:    req.BrokerID,
		Percent:     req.Percent,
	}
	if err := h.catalog.CreateOverride(c.Request.Context(), o); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"override": o})
}

// @Summary Reset catalog cache
// @Description Drop cached broker percents, overrides and agent codes
// @Tags Brokers
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /catalog/reset [post]
func (h *BrokerHandler) ResetCatalog(c *gin.Context) {
	if err := h.catalog.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Catálogo recargado"})
}
