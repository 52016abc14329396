// Package app wires configuration into a running catalog: store backends,
// caches, seed data and the services shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nulzo/model-catalog/internal/adapters/cache/memory"
	"github.com/nulzo/model-catalog/internal/adapters/cache/redis"
	"github.com/nulzo/model-catalog/internal/config"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/internal/core/services"
	"github.com/nulzo/model-catalog/internal/core/services/transfer"
	"github.com/nulzo/model-catalog/internal/discovery"
	"github.com/nulzo/model-catalog/internal/seed"
	"github.com/nulzo/model-catalog/internal/store"
	"github.com/nulzo/model-catalog/internal/store/cache"
	"github.com/nulzo/model-catalog/internal/store/file"
	memstore "github.com/nulzo/model-catalog/internal/store/memory"
	"github.com/nulzo/model-catalog/internal/store/secrets"
	"github.com/nulzo/model-catalog/internal/store/sqlite"
	"github.com/nulzo/model-catalog/internal/telemetry"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	// Register model listers
	_ "github.com/nulzo/model-catalog/internal/discovery/anthropic"
	_ "github.com/nulzo/model-catalog/internal/discovery/openai"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     ports.ProviderStore
	Catalog   *services.CatalogService
	Importer  *transfer.Importer
	Exporter  *transfer.Exporter
	Discovery *discovery.Service
	Metrics   *telemetry.Metrics
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry

	files   *file.Store
	cached  *cache.Store
	closers []func() error
}

// Bootstrap opens the configured store, seeds it when empty and loads the
// catalog snapshot.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Telemetry.Metrics {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = telemetry.NewMetrics(a.Registry)
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Catalog.Seed {
		if err := a.seed(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Catalog = services.NewCatalogService(logger, a.Store, nil, a.Metrics)
	if err := a.Catalog.Reload(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	a.Importer = transfer.NewImporter(logger, a.Store, a.Catalog, a.Metrics)
	a.Exporter = transfer.NewExporter(logger, a.Catalog, cfg.Catalog.Generator, a.Metrics)
	a.Discovery = discovery.NewService(logger, discovery.NewFetcher(logger, nil), a.Catalog)

	logger.Info("Catalog ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.Int("providers", len(a.Catalog.Providers())),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Storage

	var sealer *secrets.Sealer
	if cfg.EncryptionKey != "" {
		s, err := secrets.NewSealerFromBase64(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid storage.encryption_key: %w", err)
		}
		sealer = s
	}

	var base ports.ProviderStore
	switch cfg.Driver {
	case store.DriverFile:
		opts := []file.Option{file.WithLogger(a.Logger)}
		if sealer != nil {
			opts = append(opts, file.WithSealer(sealer))
		}
		fs, err := file.New(cfg.DataDir, opts...)
		if err != nil {
			return err
		}
		a.files = fs
		base = fs
	case store.DriverSQLite:
		opts := []sqlite.Option{sqlite.WithLogger(a.Logger)}
		if sealer != nil {
			opts = append(opts, sqlite.WithSealer(sealer))
		}
		db, err := sqlite.Open(cfg.SQLiteDSN, opts...)
		if err != nil {
			return err
		}
		base = db
	case store.DriverMemory:
		base = memstore.New()
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	a.closers = append(a.closers, base.Close)

	instrumented := store.Instrument(base, cfg.Driver, a.Metrics)

	c, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		a.Store = instrumented
		return nil
	}

	a.cached = cache.New(instrumented, c, a.Config.Cache.TTL, a.Logger)
	a.Store = a.cached
	return nil
}

func (a *App) openCache(ctx context.Context) (ports.CacheService, error) {
	switch a.Config.Cache.Driver {
	case "memory":
		return memory.NewMemoryCache(), nil
	case "redis":
		rc := a.Config.Redis
		c, err := redis.New(ctx, redis.Config{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return nil, nil
	}
}

func (a *App) seed(ctx context.Context) error {
	var (
		providers []schema.Provider
		warnings  []string
		err       error
	)
	if path := a.Config.Catalog.SeedFile; path != "" {
		providers, warnings, err = seed.LoadFile(filepath.Clean(path))
	} else {
		providers, warnings, err = seed.Builtin()
	}
	if err != nil {
		return err
	}
	for _, w := range warnings {
		a.Logger.Warn("Seed catalog entry adjusted", zap.String("warning", w))
	}

	_, err = seed.Apply(ctx, a.Logger, a.Store, providers)
	return err
}

// Watch reloads the catalog when the file store is edited by hand. It is a
// no-op for other drivers or when storage.watch is off.
func (a *App) Watch(ctx context.Context) error {
	if a.files == nil || !a.Config.Storage.Watch {
		return nil
	}
	return a.files.Watch(ctx, func() {
		if a.cached != nil {
			a.cached.Invalidate(ctx)
		}
		if err := a.Catalog.Reload(ctx); err != nil {
			a.Logger.Error("Failed to reload catalog", zap.Error(err))
		}
	})
}

// Close releases the store and cache connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
