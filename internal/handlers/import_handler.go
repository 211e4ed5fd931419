package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/middleware"
	"github.com/sjperalta/comisiones-api/internal/services"
	"github.com/sjperalta/comisiones-api/internal/storage"
)

type ImportHandler struct {
	ingestion      *services.IngestionService
	maxUploadBytes int64
}

func NewImportHandler(ingestion *services.IngestionService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{ingestion: ingestion, maxUploadBytes: maxUploadBytes}
}

// @Summary Import carrier statement
// @Description Upload a carrier commission statement (PDF, Excel or CSV) into a DRAFT fortnight
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file"
// @Param insurer formData string true "Carrier key (assa, fedpa, sura, mapfre, ancon, internacional)"
// @Param fortnight_id formData int true "Fortnight ID"
// @Param declared_total formData string false "Total printed on the statement"
// @Success 201 {object} services.ImportResult
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /imports [post]
func (h *ImportHandler) Create(c *gin.Context) {
	in, ok := h.readUpload(c)
	if !ok {
		return
	}
	in.Insurer = strings.TrimSpace(c.PostForm("insurer"))
	if in.Insurer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "insurer es requerido"})
		return
	}

	result, err := h.ingestion.Import(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"import": result})
}

// @Summary Import agent-code statement
// @Description Upload the agent-code distribution statement; codes are validated before matching
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file"
// @Param fortnight_id formData int true "Fortnight ID"
// @Param declared_total formData string false "Total printed on the statement"
// @Success 201 {object} services.ImportResult
// @Security BearerAuth
// @Router /imports/agent-codes [post]
func (h *ImportHandler) CreateAgentCodes(c *gin.Context) {
	in, ok := h.readUpload(c)
	if !ok {
		return
	}
	in.Insurer = strings.TrimSpace(c.PostForm("insurer"))

	result, err := h.ingestion.ImportAgentCodes(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"import": result})
}

// @Summary Show import
// @Description Get an import with its commission items
// @Tags Imports
// @Produce json
// @Param import_id path int true "Import ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /imports/{import_id} [get]
func (h *ImportHandler) Show(c *gin.Context) {
	id, err := paramID(c, "import_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	imp, err := h.ingestion.FindImport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"import": imp})
}

// @Summary List pending items
// @Description Items not yet attributed to a broker, grouped by carrier and identifier
// @Tags Imports
// @Produce json
// @Param insurer query string false "Carrier key"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /pending-items [get]
func (h *ImportHandler) Pending(c *gin.Context) {
	groups, err := h.ingestion.PendingItems(c.Request.Context(), c.Query("insurer"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type ResolveRequest struct {
	BrokerID uint `json:"broker_id" validate:"required"`
}

// @Summary Resolve pending item
// @Description Assign a pending item to a broker; it is paid when the fortnight closes
// @Tags Imports
// @Accept json
// @Produce json
// @Param item_id path int true "Item ID"
// @Param body body ResolveRequest true "Broker"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /pending-items/{item_id}/resolve [post]
func (h *ImportHandler) Resolve(c *gin.Context) {
	id, err := paramID(c, "item_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req ResolveRequest
	if err := bindAndValidate(c, "item", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.ingestion.Resolve(c.Request.Context(), services.ResolveInput{
		ItemID:   id,
		BrokerID: req.BrokerID,
		UserID:   middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "message": "Registro asignado"})
}

// readUpload reads the multipart fields shared by both import endpoints
func (h *ImportHandler) readUpload(c *gin.Context) (services.ImportInput, bool) {
	var in services.ImportInput

	fortnightID, err := strconv.ParseUint(c.PostForm("fortnight_id"), 10, 32)
	if err != nil || fortnightID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fortnight_id es requerido"})
		return in, false
	}

	if raw := strings.TrimSpace(c.PostForm("declared_total")); raw != "" {
		total, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "declared_total inválido"})
			return in, false
		}
		in.DeclaredTotal = decimal.NewNullDecimal(total)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo requerido"})
		return in, false
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Archivo demasiado grande"})
		return in, false
	}
	if !storage.IsValidStatement(header.Filename, header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de archivo inválido"})
		return in, false
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer el archivo"})
		return in, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Archivo demasiado grande"})
		return in, false
	}

	in.FortnightID = uint(fortnightID)
	in.FileName = header.Filename
	in.Data = data
	in.UserID = middleware.GetUserID(c)
	return in, true
}
