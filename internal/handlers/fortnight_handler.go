package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/comisiones-api/internal/middleware"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/sjperalta/comisiones-api/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type FortnightHandler struct {
	fortnights *services.FortnightService
	reports    *services.ReportService
}

func NewFortnightHandler(fortnights *services.FortnightService, reports *services.ReportService) *FortnightHandler {
	return &FortnightHandler{fortnights: fortnights, reports: reports}
}

// @Summary List fortnights
// @Description Get a paginated list of fortnights, newest first
// @Tags Fortnights
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "DRAFT or PAID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fortnights [get]
func (h *FortnightHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = strings.ToUpper(c.Query("status"))
	query.SortBy = "period_start"
	query.SortDir = "desc"

	fortnights, total, err := h.fortnights.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	perPage := max(query.PerPage, 1)
	c.JSON(http.StatusOK, gin.H{
		"fortnights": fortnights,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

type EnsureFortnightRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// @Summary Provision fortnight
// @Description Create the DRAFT fortnight containing a date (default today) if it does not exist
// @Tags Fortnights
// @Accept json
// @Produce json
// @Param body body EnsureFortnightRequest false "Date"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fortnights [post]
func (h *FortnightHandler) Ensure(c *gin.Context) {
	var req EnsureFortnightRequest
	if c.Request.ContentLength > 0 {
		if err := bindAndValidate(c, "fortnight", &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	day := time.Now()
	if d, err := parseDate(req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	} else if d != nil {
		day = *d
	}

	f, created, err := h.fortnights.EnsureFortnight(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"fortnight": f, "label": f.Label(), "created": created})
}

// @Summary Fortnight summary
// @Description Per-broker breakdown recomputed from items, stored totals and imports
// @Tags Fortnights
// @Produce json
// @Param fortnight_id path int true "Fortnight ID"
// @Success 200 {object} services.FortnightSummary
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/summary [get]
func (h *FortnightHandler) Summary(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	summary, err := h.fortnights.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Recalculate fortnight
// @Description Rebuild the stored broker totals of a DRAFT fortnight
// @Tags Fortnights
// @Produce json
// @Param fortnight_id path int true "Fortnight ID"
// @Success 200 {object} services.Breakdown
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/recalculate [post]
func (h *FortnightHandler) Recalculate(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	breakdown, err := h.fortnights.Recalculate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": breakdown})
}

// @Summary Close fortnight
// @Description Pay a DRAFT fortnight and download the bank transfer file
// @Tags Fortnights
// @Produce text/csv
// @Param fortnight_id path int true "Fortnight ID"
// @Success 200 {file} file "bank file"
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/close [post]
func (h *FortnightHandler) Close(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	result, err := h.fortnights.Close(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Fortnight-Status", result.Fortnight.Status)
	c.Header("X-Bank-File-Batch", result.BankFile.Batch)
	c.Header("X-Bank-File-Total", result.BankFile.Total.StringFixed(2))
	c.Header("X-Bank-File-Rows", strconv.Itoa(len(result.BankFile.Rows)))
	c.Header("X-Retained-Count", strconv.Itoa(len(result.Retained)))
	attachment(c, result.BankFile.FileName)
	c.Data(http.StatusOK, contentTypeCSV, result.BankFile.Content)
}

// @Summary Download bank file
// @Description Download the bank transfer file of a PAID fortnight
// @Tags Fortnights
// @Produce text/csv
// @Param fortnight_id path int true "Fortnight ID"
// @Success 200 {file} file "bank file"
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/bank-file [get]
func (h *FortnightHandler) BankFile(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	file, err := h.fortnights.BankFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, file.FileName)
	c.Data(http.StatusOK, contentTypeCSV, file.Content)
}

// @Summary Fortnight workbook
// @Description Download the fortnight detail as Excel
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param fortnight_id path int true "Fortnight ID"
// @Success 200 {file} file "report.xlsx"
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/report.xlsx [get]
func (h *FortnightHandler) Workbook(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	data, filename, err := h.reports.FortnightWorkbook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, data)
}

// @Summary Broker statement
// @Description Download one broker's commission statement for a fortnight as PDF
// @Tags Reports
// @Produce application/pdf
// @Param fortnight_id path int true "Fortnight ID"
// @Param broker_id path int true "Broker ID"
// @Success 200 {file} file "statement.pdf"
// @Security BearerAuth
// @Router /fortnights/{fortnight_id}/brokers/{broker_id}/statement.pdf [get]
func (h *FortnightHandler) Statement(c *gin.Context) {
	id, ok := fortnightID(c)
	if !ok {
		return
	}
	brokerID, err := paramID(c, "broker_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, filename, err := h.reports.BrokerStatement(c.Request.Context(), id, brokerID)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, contentTypePDF, data)
}

func fortnightID(c *gin.Context) (uint, bool) {
	id, err := paramID(c, "fortnight_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return id, true
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
}
