package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/adapters/source"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/services/transfer"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Import applies the backup in the request body. The result is returned for
// every outcome. A rejected document answers 422 and a store failure 500.
//
// POST /v1/import?mode=merge|replace
func (h *Handler) Import(c *gin.Context) {
	mode := schema.ImportMode(c.DefaultQuery("mode", string(schema.ImportModeMerge)))
	src := source.Reader{R: c.Request.Body}

	var res schema.ImportResult
	if pass := c.GetHeader(PassphraseHeader); pass != "" {
		res = h.importer.ImportEncrypted(c.Request.Context(), src, mode, pass)
	} else {
		res = h.importer.Import(c.Request.Context(), src, mode)
	}

	status := http.StatusOK
	switch {
	case domain.IsStoreFailure(res):
		status = http.StatusInternalServerError
	case !res.Success && !domain.IsCancelled(res):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, res)
}

// Export downloads the catalog as a backup document, sealed when a
// passphrase header is present.
//
// GET /v1/export
func (h *Handler) Export(c *gin.Context) {
	var buf source.Buffer
	filename := transfer.DefaultFilename(h.now())
	contentType := "application/json"

	var res schema.ExportResult
	if pass := c.GetHeader(PassphraseHeader); pass != "" {
		res = h.exporter.EncryptTo(c.Request.Context(), &buf, pass)
		filename += ".enc"
		contentType = "application/octet-stream"
	} else {
		res = h.exporter.ExportTo(c.Request.Context(), &buf)
	}

	if !res.Success {
		_ = c.Error(domain.InternalError(res.Message, fmt.Errorf("export: %s", res.Message)))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// ClearAll removes every provider from the catalog.
//
// DELETE /v1/data
func (h *Handler) ClearAll(c *gin.Context) {
	if err := h.catalog.ClearAll(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
