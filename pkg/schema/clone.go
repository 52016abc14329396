package schema

// Clone returns a deep copy of the model. Pointer fields are reallocated so the
// copy never aliases the original.
func (m Model) Clone() Model {
	out := m
	out.Parameters = clonePtr(m.Parameters)
	out.Pricing.Cached = clonePtr(m.Pricing.Cached)
	out.Context.MaxOutput = clonePtr(m.Context.MaxOutput)
	out.Modalities = cloneSlice(m.Modalities)
	out.Limits = cloneSlice(m.Limits)
	if m.Features != nil {
		f := ModelFeatures{
			ToolCalling:   clonePtr(m.Features.ToolCalling),
			Reasoning:     clonePtr(m.Features.Reasoning),
			Search:        clonePtr(m.Features.Search),
			CodeExecution: clonePtr(m.Features.CodeExecution),
			Vision:        clonePtr(m.Features.Vision),
		}
		out.Features = &f
	}
	return out
}

// Clone returns a deep copy of the provider including its models.
func (p Provider) Clone() Provider {
	out := p
	out.Credentials.APIKeys = cloneSlice(p.Credentials.APIKeys)
	out.Endpoints.Anthropic = clonePtr(p.Endpoints.Anthropic)
	out.Limits = cloneSlice(p.Limits)
	out.Features = p.Features.Clone()
	if p.Models != nil {
		out.Models = make([]Model, len(p.Models))
		for i, m := range p.Models {
			out.Models[i] = m.Clone()
		}
	}
	return out
}

func (f ProviderFeatures) Clone() ProviderFeatures {
	return ProviderFeatures{
		Streaming:   clonePtr(f.Streaming),
		ToolCalling: clonePtr(f.ToolCalling),
		JSONMode:    clonePtr(f.JSONMode),
	}
}

// CloneProviders deep copies a provider list. A nil list stays nil.
func CloneProviders(providers []Provider) []Provider {
	if providers == nil {
		return nil
	}
	out := make([]Provider, len(providers))
	for i, p := range providers {
		out[i] = p.Clone()
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
