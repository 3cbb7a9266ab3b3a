package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/correction-api/api/swagger"
	"github.com/noah-isme/correction-api/internal/handler"
	"github.com/noah-isme/correction-api/internal/middleware"
	"github.com/noah-isme/correction-api/internal/service"
	"github.com/noah-isme/correction-api/pkg/config"
	"github.com/noah-isme/correction-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/correction-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/correction-api/pkg/middleware/requestid"
)

var unloggedPaths = []string{"/health", "/ready", "/metrics"}

type routeHandlers struct {
	corrections *handler.CorrectionHandler
	batches     *handler.BatchHandler
	assist      *handler.AssistHandler
	courses     *handler.CourseHandler
	analytics   *handler.AnalyticsHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, unloggedPaths...))
	r.Use(middleware.Metrics(metrics, unloggedPaths...))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	corrections := api.Group("/corrections")
	corrections.POST("", h.corrections.Create)
	corrections.GET("", h.corrections.List)
	corrections.GET("/:id", h.corrections.Get)
	corrections.PATCH("/:id", h.corrections.Update)
	corrections.DELETE("/:id", h.corrections.Delete)
	corrections.POST("/:id/complete", h.corrections.Complete)
	corrections.POST("/:id/copies/:copyId/archive", h.corrections.ArchiveCopy)
	corrections.POST("/:id/batches", h.corrections.SubmitBatch)
	corrections.GET("/:id/export", h.corrections.Export)

	api.GET("/batches/:id", h.batches.Get)

	courses := api.Group("/courses")
	courses.POST("", h.courses.Create)
	courses.GET("", h.courses.List)
	courses.GET("/:id", h.courses.Get)
	courses.PATCH("/:id", h.courses.Update)
	courses.DELETE("/:id", h.courses.Delete)

	analytics := api.Group("/analytics")
	analytics.GET("", h.analytics.List)
	analytics.GET("/:classLevel", h.analytics.Get)
	analytics.PUT("/:classLevel", h.analytics.Update)
	analytics.POST("/:classLevel/refresh", h.analytics.Refresh)

	assist := api.Group("/assist")
	assist.POST("/rubric", h.assist.Rubric)
	assist.POST("/exercises", h.assist.Exercises)

	api.GET("/system/metrics", h.metrics.SystemMetrics)

	return r
}
