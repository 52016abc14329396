package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/core/services"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/internal/server/validator"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// PassphraseHeader carries the passphrase of an encrypted backup.
const PassphraseHeader = "X-Backup-Passphrase"

// Catalog is the catalog service as the handlers use it.
type Catalog interface {
	ports.CatalogService
	SearchModels(query string) []services.ModelEntry
}

type Importer interface {
	Import(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode) schema.ImportResult
	ImportEncrypted(ctx context.Context, source ports.DocumentSource, mode schema.ImportMode, passphrase string) schema.ImportResult
}

type Exporter interface {
	ExportTo(ctx context.Context, sink ports.DocumentSink) schema.ExportResult
	EncryptTo(ctx context.Context, sink ports.DocumentSink, passphrase string) schema.ExportResult
}

type Discoverer interface {
	Discover(ctx context.Context, providerID string, apply bool) (*discovery.Result, error)
}

// Handler serves the catalog admin API.
type Handler struct {
	catalog    Catalog
	importer   Importer
	exporter   Exporter
	discoverer Discoverer
	now        func() time.Time
}

func NewHandler(catalog Catalog, importer Importer, exporter Exporter, discoverer Discoverer) *Handler {
	return &Handler{
		catalog:    catalog,
		importer:   importer,
		exporter:   exporter,
		discoverer: discoverer,
		now:        time.Now,
	}
}

// RegisterRoutes mounts every catalog endpoint on router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	providers := router.Group("/providers")
	{
		providers.GET("", h.ListProviders)
		providers.POST("", h.CreateProvider)
		providers.GET("/:id", h.GetProvider)
		providers.PATCH("/:id", h.UpdateProvider)
		providers.DELETE("/:id", h.DeleteProvider)
		providers.PUT("/:id/credentials", h.UpdateCredentials)

		providers.POST("/:id/models", h.AddModel)
		providers.POST("/:id/models/discover", h.DiscoverModels)
		providers.PATCH("/:id/models/:modelId", h.UpdateModel)
		providers.DELETE("/:id/models/:modelId", h.DeleteModel)
	}

	router.GET("/models", h.SearchModels)

	router.GET("/selection", h.GetSelection)
	router.PUT("/selection", h.Select)
	router.DELETE("/selection", h.ClearSelection)

	router.POST("/import", h.Import)
	router.GET("/export", h.Export)
	router.DELETE("/data", h.ClearAll)
}

// bind decodes the JSON body into dest, reporting a problem on failure.
func bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		_ = c.Error(validator.BindingProblem(err))
		return false
	}
	return true
}

func list(data any) gin.H {
	return gin.H{
		"object": "list",
		"data":   data,
	}
}
