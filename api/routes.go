package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/dmarcstack/dmarcstack/api/handlers"
	"github.com/dmarcstack/dmarcstack/api/middleware"
	"github.com/dmarcstack/dmarcstack/internal/repository"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
	"github.com/dmarcstack/dmarcstack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(time.Now()))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-DMARCSTACK-API-KEY",
		ValidAPIKey: apikey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware("dmarcstack"))
	api.Use(middleware.TracingMiddleware())
	{
		reports := api.Group("/reports")
		{
			reports.POST("/process", handlers.ProcessReports(s.Orchestrator))
		}

		batches := api.Group("/batches")
		{
			batches.GET("/:key", handlers.GetBatch(repos))
		}

		monitoring := api.Group("/monitoring")
		{
			monitoring.GET("/:domain", handlers.ListMonitoring(repos))
		}
	}
}
