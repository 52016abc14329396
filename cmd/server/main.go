package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nulzo/model-catalog/internal/app"
	"github.com/nulzo/model-catalog/internal/config"
	"github.com/nulzo/model-catalog/internal/platform/logger"
	tracing "github.com/nulzo/model-catalog/internal/platform/otel"
	"github.com/nulzo/model-catalog/internal/server"
	"go.uber.org/zap"
)

const serviceName = "model-catalog"

func main() {
	// 1. Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracer := tracing.Noop
	if cfg.Telemetry.Tracing {
		shutdownTracer, err = tracing.InitTracer(serviceName, l, os.Stdout)
		if err != nil {
			l.Fatal("Failed to initialize tracer", zap.Error(err))
		}
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			l.Error("Failed to shutdown tracer", zap.Error(err))
		}
	}()

	// 4. Store, seed and services
	a, err := app.Bootstrap(ctx, cfg, l)
	if err != nil {
		l.Fatal("Failed to bootstrap catalog", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			l.Error("Failed to close store", zap.Error(err))
		}
	}()

	if err := a.Watch(ctx); err != nil {
		l.Warn("File watch disabled", zap.Error(err))
	}

	// 5. HTTP server
	deps := server.Deps{
		Catalog:    a.Catalog,
		Importer:   a.Importer,
		Exporter:   a.Exporter,
		Discoverer: a.Discovery,
		Metrics:    a.Metrics,
	}
	if a.Registry != nil {
		deps.Gatherer = a.Registry
	}

	srv := server.New(cfg, l, deps)
	if err := srv.Run(ctx); err != nil {
		l.Error("Server failed", zap.Error(err))
	}
}
