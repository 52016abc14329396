package domain

import "github.com/nulzo/model-catalog/pkg/schema"

// ProviderPatch is a partial provider update. Nil fields are left untouched.
type ProviderPatch struct {
	Name      *string                  `json:"name,omitempty"`
	Enabled   *bool                    `json:"enabled,omitempty"`
	Endpoints *schema.Endpoints        `json:"endpoints,omitempty"`
	Limits    *[]schema.Limit          `json:"limits,omitempty"`
	Features  *schema.ProviderFeatures `json:"features,omitempty"`
	APIKeys   *[]string                `json:"apiKeys,omitempty"`
}

// Apply returns a copy of p with every provided field overwritten. The id,
// models and custom flag are never changed by a patch.
func (u ProviderPatch) Apply(p schema.Provider) schema.Provider {
	out := p.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.Endpoints != nil {
		ep := *u.Endpoints
		if ep.Anthropic != nil {
			a := *ep.Anthropic
			ep.Anthropic = &a
		}
		out.Endpoints = ep
	}
	if u.Limits != nil {
		out.Limits = append([]schema.Limit{}, (*u.Limits)...)
	}
	if u.Features != nil {
		out.Features = u.Features.Clone()
	}
	if u.APIKeys != nil {
		out.Credentials.APIKeys = append([]string{}, (*u.APIKeys)...)
	}
	return out
}

// ModelPatch is a partial model update. Nil fields are left untouched.
type ModelPatch struct {
	Name       *string               `json:"name,omitempty"`
	Enabled    *bool                 `json:"enabled,omitempty"`
	Parameters *string               `json:"parameters,omitempty"`
	Pricing    *schema.Pricing       `json:"pricing,omitempty"`
	Context    *schema.Context       `json:"context,omitempty"`
	Modalities *[]string             `json:"modalities,omitempty"`
	Features   *schema.ModelFeatures `json:"features,omitempty"`
	Limits     *[]schema.Limit       `json:"limits,omitempty"`
}

// Apply returns a copy of m with every provided field overwritten. The id is
// never changed by a patch.
func (u ModelPatch) Apply(m schema.Model) schema.Model {
	out := m.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.Parameters != nil {
		v := *u.Parameters
		out.Parameters = &v
	}
	if u.Pricing != nil {
		out.Pricing = schema.Model{Pricing: *u.Pricing}.Clone().Pricing
	}
	if u.Context != nil {
		out.Context = schema.Model{Context: *u.Context}.Clone().Context
	}
	if u.Modalities != nil {
		out.Modalities = append([]string{}, (*u.Modalities)...)
	}
	if u.Features != nil {
		out.Features = schema.Model{Features: u.Features}.Clone().Features
	}
	if u.Limits != nil {
		out.Limits = append([]schema.Limit{}, (*u.Limits)...)
	}
	return out
}
