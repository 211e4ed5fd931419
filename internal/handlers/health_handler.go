package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/comisiones-api/internal/parsers"
)

type HealthHandler struct {
	registry *parsers.Registry
}

func NewHealthHandler(registry *parsers.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// @Summary Health Check
// @Description Checks if the API is running and lists the registered carriers
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "comisiones-api",
		"version":  "1.0.0",
		"carriers": h.registry.Keys(),
	})
}
