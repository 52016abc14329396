package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
)

type credentialsRequest struct {
	APIKeys []string `json:"apiKeys"`
}

// GET /v1/providers
func (h *Handler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, list(h.catalog.Providers()))
}

// CreateProvider adds a custom provider. The id is generated from the name
// when the payload carries none.
//
// POST /v1/providers
func (h *Handler) CreateProvider(c *gin.Context) {
	var req schema.Provider
	if !bind(c, &req) {
		return
	}

	created, err := h.catalog.CreateProvider(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /v1/providers/:id
func (h *Handler) GetProvider(c *gin.Context) {
	p, err := h.catalog.Provider(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PATCH /v1/providers/:id
func (h *Handler) UpdateProvider(c *gin.Context) {
	var patch domain.ProviderPatch
	if !bind(c, &patch) {
		return
	}

	updated, err := h.catalog.UpdateProvider(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETE /v1/providers/:id
func (h *Handler) DeleteProvider(c *gin.Context) {
	if err := h.catalog.DeleteProvider(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateCredentials replaces the api keys of a provider.
//
// PUT /v1/providers/:id/credentials
func (h *Handler) UpdateCredentials(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.catalog.UpdateCredentials(c.Request.Context(), id, req.APIKeys); err != nil {
		_ = c.Error(err)
		return
	}

	p, err := h.catalog.Provider(id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}
