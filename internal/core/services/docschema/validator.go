// Package docschema checks that a parsed backup document has the shape the
// importer expects before anything is reconciled or written.
package docschema

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/pkg/schema"
)

// Result is the outcome of a validation pass.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Err returns the errors as domain.ValidationErrors, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	out := make(domain.ValidationErrors, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, domain.FieldError{Message: e})
	}
	return out
}

var supported = version.Must(version.NewVersion(schema.SchemaVersion))

// Validate inspects a document decoded into generic JSON values. It never
// mutates doc and ignores fields it does not know about.
func Validate(doc any) Result {
	r := &Result{Errors: []string{}, Warnings: []string{}}

	root, ok := doc.(map[string]any)
	if !ok {
		r.fail("document must be a JSON object")
		return r.done()
	}

	r.checkVersion(root)
	r.checkMetadata(root)

	raw, present := root["providers"]
	providers, isList := raw.([]any)
	if !present || !isList {
		r.fail("providers must be a list")
		return r.done()
	}

	for i, rp := range providers {
		r.checkProvider(i, rp)
	}

	return r.done()
}

func (r *Result) checkVersion(root map[string]any) {
	raw, present := root["version"]
	if !present || raw == nil {
		r.fail("version is required")
		return
	}

	v, ok := raw.(string)
	if !ok {
		r.fail("version must be a string")
		return
	}
	if v == "" {
		r.fail("version is required")
		return
	}

	parsed, err := version.NewVersion(v)
	if err != nil {
		r.warn(fmt.Sprintf("version %q is not a semantic version", v))
		return
	}

	if parsed.Segments()[0] > supported.Segments()[0] {
		r.warn(fmt.Sprintf("document version %s is newer than supported version %s; unknown fields are ignored", v, supported))
	}
}

func (r *Result) checkMetadata(root map[string]any) {
	raw, present := root["metadata"]
	if !present {
		r.warn("metadata is missing")
		return
	}
	if _, ok := raw.(map[string]any); !ok {
		r.warn("metadata is not an object and was ignored")
	}
}

func (r *Result) checkProvider(i int, raw any) {
	p, ok := raw.(map[string]any)
	if !ok {
		r.fail(fmt.Sprintf("providers[%d] must be an object", i))
		return
	}

	if !nonEmptyString(p["id"]) {
		r.fail(fmt.Sprintf("providers[%d].id is required", i))
	}
	if !nonEmptyString(p["name"]) {
		r.fail(fmt.Sprintf("providers[%d].name is required", i))
	}

	rawModels, present := p["models"]
	if !present || rawModels == nil {
		return
	}

	models, ok := rawModels.([]any)
	if !ok {
		r.fail(fmt.Sprintf("providers[%d].models must be a list", i))
		return
	}

	for j, rm := range models {
		m, ok := rm.(map[string]any)
		if !ok {
			r.fail(fmt.Sprintf("providers[%d].models[%d] must be an object", i, j))
			continue
		}
		if !nonEmptyString(m["id"]) {
			r.fail(fmt.Sprintf("providers[%d].models[%d].id is required", i, j))
		}
	}
}

func (r *Result) fail(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) done() Result {
	r.Valid = len(r.Errors) == 0
	return *r
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
