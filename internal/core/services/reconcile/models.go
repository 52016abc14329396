// Package reconcile combines a stored provider catalog with an incoming one
// under the replace or merge policy. Every function here is pure: inputs are
// never modified and the outputs share no memory with them.
package reconcile

import (
	"fmt"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// ModelCounts tallies what a model reconciliation did.
type ModelCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// Models reconciles the model list of a single provider.
//
// In replace mode the result is the incoming list deduplicated by id (first
// occurrence wins). In merge mode matched ids are fully replaced in place,
// unmatched incoming models are appended in incoming order and existing models
// not mentioned are kept. In both modes a model with no usable context window,
// no modalities or negative pricing is skipped with a warning.
func Models(existing, incoming []schema.Model, mode schema.ImportMode, providerID string) ([]schema.Model, []string, ModelCounts) {
	var (
		warnings []string
		counts   ModelCounts
	)

	index := make(map[string]int, len(existing))
	for i, m := range existing {
		if _, ok := index[m.ID]; !ok {
			index[m.ID] = i
		}
	}

	var result []schema.Model
	if mode == schema.ImportModeMerge {
		result = make([]schema.Model, 0, len(existing)+len(incoming))
		for _, m := range existing {
			result = append(result, m.Clone())
		}
	} else {
		result = make([]schema.Model, 0, len(incoming))
	}

	seen := make(map[string]bool, len(incoming))

	for _, in := range incoming {
		if in.ID == "" {
			warnings = append(warnings, fmt.Sprintf("model without id in provider %q skipped", providerID))
			continue
		}
		if seen[in.ID] {
			warnings = append(warnings, fmt.Sprintf("duplicate model %q in provider %q dropped", in.ID, providerID))
			continue
		}
		seen[in.ID] = true

		if reason := rejectModel(in); reason != "" {
			warnings = append(warnings, fmt.Sprintf("model %q in provider %q skipped: %s", in.ID, providerID, reason))
			continue
		}

		m := in.Clone()
		if m.Limits != nil {
			var dropped []string
			m.Limits, dropped = sanitizeLimits(m.Limits)
			for _, d := range dropped {
				warnings = append(warnings, fmt.Sprintf("malformed limit ignored for model %q in provider %q: %s", m.ID, providerID, d))
			}
			// limits is omitempty on the wire
			if len(m.Limits) == 0 {
				m.Limits = nil
			}
		}

		_, existed := index[m.ID]
		if existed {
			counts.Updated++
		} else {
			counts.Added++
		}

		if mode == schema.ImportModeMerge && existed {
			result[index[m.ID]] = m
			continue
		}

		result = append(result, m)
	}

	return result, warnings, counts
}

// rejectModel returns why a model cannot be stored, or "" when it can.
func rejectModel(m schema.Model) string {
	switch {
	case m.Context.MaxInput <= 0:
		return "maxInput must be greater than 0"
	case len(m.Modalities) == 0:
		return "modalities must not be empty"
	case m.Pricing.Input < 0 || m.Pricing.Output < 0:
		return "pricing must not be negative"
	case m.Pricing.Cached != nil && *m.Pricing.Cached < 0:
		return "cached pricing must not be negative"
	}
	return ""
}

// sanitizeLimits keeps the enforceable rules and describes the dropped ones.
func sanitizeLimits(limits []schema.Limit) ([]schema.Limit, []string) {
	kept := make([]schema.Limit, 0, len(limits))
	var dropped []string
	for _, l := range limits {
		if l.Valid() {
			kept = append(kept, l)
			continue
		}
		dropped = append(dropped, fmt.Sprintf("type=%q limit=%d window=%d", l.Type, l.Limit, l.Window))
	}
	return kept, dropped
}
