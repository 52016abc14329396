package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// SearchModels lists models across providers, filtered by the q parameter.
//
// GET /v1/models?q=
func (h *Handler) SearchModels(c *gin.Context) {
	c.JSON(http.StatusOK, list(h.catalog.SearchModels(c.Query("q"))))
}

// POST /v1/providers/:id/models
func (h *Handler) AddModel(c *gin.Context) {
	var req schema.Model
	if !bind(c, &req) {
		return
	}

	added, err := h.catalog.AddModel(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// PATCH /v1/providers/:id/models/:modelId
func (h *Handler) UpdateModel(c *gin.Context) {
	var patch domain.ModelPatch
	if !bind(c, &patch) {
		return
	}

	updated, err := h.catalog.UpdateModel(c.Request.Context(), c.Param("id"), c.Param("modelId"), patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DELETE /v1/providers/:id/models/:modelId
func (h *Handler) DeleteModel(c *gin.Context) {
	if err := h.catalog.DeleteModel(c.Request.Context(), c.Param("id"), c.Param("modelId")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DiscoverModels fetches the remote model listing of a provider. With
// apply=true the unknown models are added to the catalog.
//
// POST /v1/providers/:id/models/discover?apply=
func (h *Handler) DiscoverModels(c *gin.Context) {
	apply := false
	if raw := c.Query("apply"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(domain.BadRequestError("apply must be a boolean"))
			return
		}
		apply = v
	}

	res, err := h.discoverer.Discover(c.Request.Context(), c.Param("id"), apply)
	if err != nil {
		if errors.Is(err, discovery.ErrNoModels) {
			err = domain.New(http.StatusBadGateway, "Bad Gateway", err.Error())
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
