// Package model holds the relational row shapes of the catalog and their
// conversion to and from the wire types.
package model

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nulzo/model-catalog/pkg/schema"
)

// ProviderRow is one row of the providers table. Nested values are stored as
// JSON text columns.
type ProviderRow struct {
	ID            string `db:"id"`
	Position      int    `db:"position"`
	Name          string `db:"name"`
	IsEnabled     bool   `db:"is_enabled"`
	APIKeys       string `db:"api_keys"` // JSON array, sealed when a key is configured
	EndpointsJSON string `db:"endpoints_json"`
	LimitsJSON    string `db:"limits_json"`
	FeaturesJSON  string `db:"features_json"`
	IsCustom      bool   `db:"is_custom"`
}

// ModelRow is one row of the models table, keyed by (provider_id, id).
type ModelRow struct {
	ProviderID   string          `db:"provider_id"`
	ID           string          `db:"id"`
	Position     int             `db:"position"`
	Name         string          `db:"name"`
	IsEnabled    bool            `db:"is_enabled"`
	Parameters   sql.NullString  `db:"parameters"`
	InputCost    float64         `db:"input_cost"`
	OutputCost   float64         `db:"output_cost"`
	CachedCost   sql.NullFloat64 `db:"cached_cost"`
	Currency     string          `db:"currency"`
	MaxInput     int             `db:"max_input"`
	MaxOutput    sql.NullInt64   `db:"max_output"`
	Modalities   string          `db:"modalities"`
	FeaturesJSON sql.NullString  `db:"features_json"`
	LimitsJSON   sql.NullString  `db:"limits_json"`
}

// NewProviderRow flattens p. apiKeys replaces p's keys so callers can pass
// sealed values.
func NewProviderRow(p schema.Provider, position int, apiKeys []string) (ProviderRow, error) {
	if apiKeys == nil {
		apiKeys = []string{}
	}
	limits := p.Limits
	if limits == nil {
		limits = []schema.Limit{}
	}

	row := ProviderRow{
		ID:        p.ID,
		Position:  position,
		Name:      p.Name,
		IsEnabled: p.Enabled,
		IsCustom:  p.IsCustom,
	}

	var err error
	if row.APIKeys, err = encode(apiKeys); err != nil {
		return row, err
	}
	if row.EndpointsJSON, err = encode(p.Endpoints); err != nil {
		return row, err
	}
	if row.LimitsJSON, err = encode(limits); err != nil {
		return row, err
	}
	if row.FeaturesJSON, err = encode(p.Features); err != nil {
		return row, err
	}
	return row, nil
}

// ToSchema rebuilds the provider without its models. Keys are returned as
// stored.
func (r ProviderRow) ToSchema() (schema.Provider, error) {
	p := schema.Provider{
		ID:       r.ID,
		Name:     r.Name,
		Enabled:  r.IsEnabled,
		IsCustom: r.IsCustom,
		Models:   []schema.Model{},
	}
	if err := decode(r.APIKeys, &p.Credentials.APIKeys); err != nil {
		return p, fmt.Errorf("provider %s api_keys: %w", r.ID, err)
	}
	if err := decode(r.EndpointsJSON, &p.Endpoints); err != nil {
		return p, fmt.Errorf("provider %s endpoints: %w", r.ID, err)
	}
	if err := decode(r.LimitsJSON, &p.Limits); err != nil {
		return p, fmt.Errorf("provider %s limits: %w", r.ID, err)
	}
	if err := decode(r.FeaturesJSON, &p.Features); err != nil {
		return p, fmt.Errorf("provider %s features: %w", r.ID, err)
	}
	if p.Credentials.APIKeys == nil {
		p.Credentials.APIKeys = []string{}
	}
	if p.Limits == nil {
		p.Limits = []schema.Limit{}
	}
	return p, nil
}

func NewModelRow(providerID string, m schema.Model, position int) (ModelRow, error) {
	row := ModelRow{
		ProviderID: providerID,
		ID:         m.ID,
		Position:   position,
		Name:       m.Name,
		IsEnabled:  m.Enabled,
		InputCost:  m.Pricing.Input,
		OutputCost: m.Pricing.Output,
		Currency:   m.Pricing.Currency,
		MaxInput:   m.Context.MaxInput,
	}
	if m.Parameters != nil {
		row.Parameters = sql.NullString{String: *m.Parameters, Valid: true}
	}
	if m.Pricing.Cached != nil {
		row.CachedCost = sql.NullFloat64{Float64: *m.Pricing.Cached, Valid: true}
	}
	if m.Context.MaxOutput != nil {
		row.MaxOutput = sql.NullInt64{Int64: int64(*m.Context.MaxOutput), Valid: true}
	}

	modalities := m.Modalities
	if modalities == nil {
		modalities = []string{}
	}
	var err error
	if row.Modalities, err = encode(modalities); err != nil {
		return row, err
	}
	if m.Features != nil {
		s, err := encode(m.Features)
		if err != nil {
			return row, err
		}
		row.FeaturesJSON = sql.NullString{String: s, Valid: true}
	}
	if m.Limits != nil {
		s, err := encode(m.Limits)
		if err != nil {
			return row, err
		}
		row.LimitsJSON = sql.NullString{String: s, Valid: true}
	}
	return row, nil
}

func (r ModelRow) ToSchema() (schema.Model, error) {
	m := schema.Model{
		ID:      r.ID,
		Name:    r.Name,
		Enabled: r.IsEnabled,
		Pricing: schema.Pricing{
			Input:    r.InputCost,
			Output:   r.OutputCost,
			Currency: r.Currency,
		},
		Context: schema.Context{MaxInput: r.MaxInput},
	}
	if r.Parameters.Valid {
		v := r.Parameters.String
		m.Parameters = &v
	}
	if r.CachedCost.Valid {
		v := r.CachedCost.Float64
		m.Pricing.Cached = &v
	}
	if r.MaxOutput.Valid {
		v := int(r.MaxOutput.Int64)
		m.Context.MaxOutput = &v
	}
	if err := decode(r.Modalities, &m.Modalities); err != nil {
		return m, fmt.Errorf("model %s modalities: %w", r.ID, err)
	}
	if r.FeaturesJSON.Valid {
		m.Features = &schema.ModelFeatures{}
		if err := decode(r.FeaturesJSON.String, m.Features); err != nil {
			return m, fmt.Errorf("model %s features: %w", r.ID, err)
		}
	}
	if r.LimitsJSON.Valid {
		if err := decode(r.LimitsJSON.String, &m.Limits); err != nil {
			return m, fmt.Errorf("model %s limits: %w", r.ID, err)
		}
	}
	return m, nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(s string, dest any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dest)
}
