package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/ports"
)

type HealthHandler struct {
	startTime time.Time
	catalog   ports.CatalogReader
}

func NewHealthHandler(catalog ports.CatalogReader) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		catalog:   catalog,
	}
}

// Health returns the health status and uptime of the API.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.startTime).String(),
		"time":      time.Now().UTC().Format(time.RFC3339),
		"providers": len(h.catalog.Providers()),
	})
}
