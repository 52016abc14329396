package reconcile

import (
	"fmt"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// Counts tallies what a provider reconciliation did across the whole catalog.
type Counts struct {
	ProvidersAdded   int `json:"providersAdded"`
	ProvidersUpdated int `json:"providersUpdated"`
	ModelsAdded      int `json:"modelsAdded"`
	ModelsUpdated    int `json:"modelsUpdated"`
}

// Providers is the number of providers written by the run.
func (c Counts) Providers() int { return c.ProvidersAdded + c.ProvidersUpdated }

// Models is the number of models written by the run.
func (c Counts) Models() int { return c.ModelsAdded + c.ModelsUpdated }

// Outcome is the reconciled catalog plus everything worth reporting about it.
type Outcome struct {
	Providers []schema.Provider
	Warnings  []string
	Counts    Counts
}

// Providers reconciles a full catalog.
//
// Replace returns the incoming providers deduplicated by id, with their model
// lists cleaned the same way. Merge starts from existing and, per incoming
// provider, overwrites name, enabled, endpoints and features, replaces limits
// when the incoming provider carries any, unions API keys and merges models.
// Unmatched incoming providers are appended and flagged as custom.
func Providers(existing, incoming []schema.Provider, mode schema.ImportMode) Outcome {
	out := Outcome{Warnings: []string{}}

	index := make(map[string]int, len(existing))
	for i, p := range existing {
		if _, ok := index[p.ID]; !ok {
			index[p.ID] = i
		}
	}

	var result []schema.Provider
	if mode == schema.ImportModeMerge {
		result = schema.CloneProviders(existing)
	}
	if result == nil {
		result = make([]schema.Provider, 0, len(incoming))
	}

	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		if in.ID == "" || in.Name == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("provider %q skipped: id and name are required", in.ID))
			continue
		}
		if seen[in.ID] {
			out.Warnings = append(out.Warnings, fmt.Sprintf("duplicate provider %q dropped", in.ID))
			continue
		}
		seen[in.ID] = true

		pos, existed := index[in.ID]
		if existed {
			out.Counts.ProvidersUpdated++
		} else {
			out.Counts.ProvidersAdded++
		}

		var (
			p        schema.Provider
			warnings []string
			mc       ModelCounts
		)
		switch {
		case mode == schema.ImportModeMerge && existed:
			p, warnings, mc = mergeProvider(result[pos], in)
			result[pos] = p
		case mode == schema.ImportModeMerge:
			p, warnings, mc = addProvider(in)
			result = append(result, p)
		default:
			var prior []schema.Model
			if existed {
				prior = existing[pos].Models
			}
			p, warnings, mc = replaceProvider(in, prior)
			result = append(result, p)
		}

		out.Warnings = append(out.Warnings, warnings...)
		out.Counts.ModelsAdded += mc.Added
		out.Counts.ModelsUpdated += mc.Updated
	}

	out.Providers = result
	return out
}

// replaceProvider takes the incoming provider as-is apart from key, model and
// limit cleanup. prior is only used to tell added models from updated ones.
func replaceProvider(in schema.Provider, prior []schema.Model) (schema.Provider, []string, ModelCounts) {
	p := in.Clone()
	p.Credentials.APIKeys = UnionKeys(nil, in.Credentials.APIKeys)

	var warnings []string
	p.Limits, warnings = providerLimits(p.ID, p.Limits)

	models, mw, mc := Models(prior, in.Models, schema.ImportModeReplace, p.ID)
	p.Models = models

	return normalize(p), append(warnings, mw...), mc
}

func addProvider(in schema.Provider) (schema.Provider, []string, ModelCounts) {
	p := in.Clone()
	p.IsCustom = true
	p.Credentials.APIKeys = UnionKeys(nil, in.Credentials.APIKeys)

	var warnings []string
	p.Limits, warnings = providerLimits(p.ID, p.Limits)

	models, mw, mc := Models(nil, in.Models, schema.ImportModeMerge, p.ID)
	p.Models = models

	return normalize(p), append(warnings, mw...), mc
}

// mergeProvider folds in into cur, which is already a private copy.
func mergeProvider(cur, in schema.Provider) (schema.Provider, []string, ModelCounts) {
	p := cur
	p.Name = in.Name
	p.Enabled = in.Enabled
	p.Endpoints = schema.Endpoints{OpenAI: in.Endpoints.OpenAI}
	if in.Endpoints.Anthropic != nil {
		u := *in.Endpoints.Anthropic
		p.Endpoints.Anthropic = &u
	}
	p.Features = in.Features.Clone()
	p.Credentials.APIKeys = UnionKeys(cur.Credentials.APIKeys, in.Credentials.APIKeys)

	var warnings []string
	if in.Limits != nil {
		limits := make([]schema.Limit, len(in.Limits))
		copy(limits, in.Limits)
		p.Limits, warnings = providerLimits(p.ID, limits)
	}

	models, mw, mc := Models(cur.Models, in.Models, schema.ImportModeMerge, p.ID)
	p.Models = models

	return normalize(p), append(warnings, mw...), mc
}

// normalize swaps nil lists for empty ones so documents never carry nulls.
func normalize(p schema.Provider) schema.Provider {
	if p.Credentials.APIKeys == nil {
		p.Credentials.APIKeys = []string{}
	}
	if p.Limits == nil {
		p.Limits = []schema.Limit{}
	}
	if p.Models == nil {
		p.Models = []schema.Model{}
	}
	return p
}

func providerLimits(providerID string, limits []schema.Limit) ([]schema.Limit, []string) {
	if limits == nil {
		return nil, nil
	}
	kept, dropped := sanitizeLimits(limits)
	warnings := make([]string, 0, len(dropped))
	for _, d := range dropped {
		warnings = append(warnings, fmt.Sprintf("malformed limit ignored for provider %q: %s", providerID, d))
	}
	return kept, warnings
}

// UnionKeys returns the existing keys in order followed by the incoming keys
// not already present. Comparison is exact; keys are never trimmed.
func UnionKeys(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, k := range list {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
