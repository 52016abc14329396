package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type selectRequest struct {
	ID string `json:"id" validate:"required"`
}

// GetSelection returns the selected provider, or null when none is selected.
//
// GET /v1/selection
func (h *Handler) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"provider": h.catalog.Selected()})
}

// PUT /v1/selection
func (h *Handler) Select(c *gin.Context) {
	var req selectRequest
	if !bind(c, &req) {
		return
	}

	if err := h.catalog.Select(req.ID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": h.catalog.Selected()})
}

// DELETE /v1/selection
func (h *Handler) ClearSelection(c *gin.Context) {
	h.catalog.ClearSelection()
	c.Status(http.StatusNoContent)
}
