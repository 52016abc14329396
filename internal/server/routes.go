package server

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-catalog/internal/server/middleware"
	v1 "github.com/nulzo/model-catalog/internal/server/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes() {
	// 1. Global Middleware
	if s.config.Telemetry.Tracing {
		s.router.Use(middleware.Tracing(serviceName))
	}
	s.router.Use(middleware.Metrics(s.deps.Metrics))
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	// 2. Public endpoints
	healthHandler := v1.NewHealthHandler(s.deps.Catalog)
	s.router.GET("/health", healthHandler.Health)

	if s.deps.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// 3. API V1 Group
	api := s.router.Group("/v1")
	if s.config.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)
		api.Use(limiter.Middleware())
	}
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	{
		handler := v1.NewHandler(s.deps.Catalog, s.deps.Importer, s.deps.Exporter, s.deps.Discoverer)
		handler.RegisterRoutes(api)
	}
}
