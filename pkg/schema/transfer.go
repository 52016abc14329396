package schema

// SchemaVersion is the version written into every exported document.
const SchemaVersion = "1.0.0"

// ImportMode selects how an imported document is combined with stored data.
type ImportMode string

const (
	ImportModeReplace ImportMode = "replace"
	ImportModeMerge   ImportMode = "merge"
)

// Valid reports whether the mode is one of the known policies.
func (m ImportMode) Valid() bool {
	return m == ImportModeReplace || m == ImportModeMerge
}

// ImportCounts is the number of entities an import touched.
type ImportCounts struct {
	Providers int `json:"providers"`
	Models    int `json:"models"`
}

// ImportResult is returned for every import attempt, successful or not.
type ImportResult struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Warnings []string     `json:"warnings"`
	Imported ImportCounts `json:"imported"`
	// Err is the store failure behind an unsuccessful import, if any.
	Err error `json:"-"`
}

// ExportResult is returned for every export attempt.
type ExportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
