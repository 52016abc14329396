package domain

import (
	"errors"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// IsCancelled reports whether r is the distinguished cancellation outcome.
// Callers use it to suppress failure notifications.
func IsCancelled(r schema.ImportResult) bool {
	return !r.Success && r.Message == ImportCancelledMessage
}

// CancelledImport is the result returned when the document source was dismissed.
func CancelledImport() schema.ImportResult {
	return schema.ImportResult{Success: false, Message: ImportCancelledMessage, Warnings: []string{}}
}

// IsStoreFailure reports whether r failed because the store could not be read
// or written, as opposed to a bad document.
func IsStoreFailure(r schema.ImportResult) bool {
	var perr *PersistenceError
	return !r.Success && errors.As(r.Err, &perr)
}
