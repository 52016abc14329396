// Package seed provides the provider catalog written to an empty store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/core/services/reconcile"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var builtin []byte

// Builtin returns the providers shipped with the binary.
func Builtin() ([]schema.Provider, []string, error) {
	return Parse(builtin)
}

// LoadFile reads a seed catalog from a YAML file.
func LoadFile(path string) ([]schema.Provider, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and cleans it the way a replace import would,
// so duplicate ids and invalid models are dropped with a warning.
func Parse(data []byte) ([]schema.Provider, []string, error) {
	var wrapper struct {
		Providers []schema.Provider `yaml:"providers"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	outcome := reconcile.Providers(nil, wrapper.Providers, schema.ImportModeReplace)
	return outcome.Providers, outcome.Warnings, nil
}

// Apply writes providers to st when it holds nothing yet. It reports whether
// the store was seeded.
func Apply(ctx context.Context, logger *zap.Logger, st ports.ProviderStore, providers []schema.Provider) (bool, error) {
	existing, err := st.LoadAll(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		logger.Debug("Store already populated, skipping seed", zap.Int("providers", len(existing)))
		return false, nil
	}

	if err := st.ReplaceAll(ctx, providers); err != nil {
		return false, fmt.Errorf("failed to seed store: %w", err)
	}

	logger.Info("Seeded provider catalog", zap.Int("providers", len(providers)))
	return true, nil
}
