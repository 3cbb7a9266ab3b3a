package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/handler"
	"github.com/noah-isme/correction-api/internal/repository"
	"github.com/noah-isme/correction-api/internal/service"
	"github.com/noah-isme/correction-api/pkg/cache"
	"github.com/noah-isme/correction-api/pkg/config"
	"github.com/noah-isme/correction-api/pkg/database"
	"github.com/noah-isme/correction-api/pkg/llm"
	"github.com/noah-isme/correction-api/pkg/lock"
	"github.com/noah-isme/correction-api/pkg/logger"
)

// @title Correction API
// @version 1.0.0
// @description Correction projects, AI batch correction and teaching assistance
// @BasePath /api/v1
// @schemes http

const (
	cacheKeyPrefix  = "correction-api:"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	llmClient, err := llm.New(llm.Config{
		Provider:            cfg.LLM.Provider,
		BaseURL:             cfg.LLM.BaseURL,
		APIKey:              cfg.LLM.APIKey,
		Model:               cfg.LLM.Model,
		Temperature:         cfg.LLM.Temperature,
		MaxCompletionTokens: cfg.LLM.MaxCompletionTokens,
	}, logr)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	locker := newLocker(cfg.Lock, redisClient)

	docs := repository.NewDocumentRepository(db, repository.DocumentLimits{
		MaxDocumentBytes: cfg.Store.MaxDocumentBytes,
		MaxFieldBytes:    cfg.Store.MaxFieldBytes,
	})
	store := service.NewCorrectionStore(docs, cfg.Store.ChunkSize, metrics, logr)
	progress := service.NewCacheService(
		repository.NewCacheRepository(redisClient, cacheKeyPrefix, logr),
		metrics, cfg.Pipeline.ProgressTTL, logr, redisClient != nil)

	assist := service.NewAssistService(llmClient, validate, logr)
	corrections := service.NewCorrectionService(store, locker, validate, logr)
	exports := service.NewExportService(store, logr)
	courses := service.NewCourseService(docs, validate, metrics, logr)
	analytics := service.NewAnalyticsService(docs, store, validate, metrics, logr)
	pipeline := service.NewCorrectionPipeline(store, assist, locker, progress, metrics, service.PipelineConfig{
		MaxFileChars:      cfg.Pipeline.MaxFileChars,
		CorrectionTimeout: cfg.Pipeline.CorrectionTimeout,
		MaxPromptTokens:   cfg.Pipeline.MaxPromptTokens,
		Workers:           cfg.Pipeline.Workers,
		BufferSize:        cfg.Pipeline.BufferSize,
		ProgressTTL:       cfg.Pipeline.ProgressTTL,
	}, logr)
	pipeline.Start(ctx)
	defer pipeline.Stop()

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := newRouter(cfg, logr, metrics, routeHandlers{
		corrections: handler.NewCorrectionHandler(corrections, pipeline, exports),
		batches:     handler.NewBatchHandler(pipeline),
		assist:      handler.NewAssistHandler(assist),
		courses:     handler.NewCourseHandler(courses),
		analytics:   handler.NewAnalyticsHandler(analytics),
		metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "lock_backend", cfg.Lock.Backend, "llm_provider", cfg.LLM.Provider, "model", llmClient.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocker(cfg config.LockConfig, client *redis.Client) lock.Locker {
	if cfg.Backend == config.LockBackendRedis && client != nil {
		return lock.NewRedisLocker(client, lock.RedisLockerConfig{
			Prefix:        cacheKeyPrefix + "lock:",
			TTL:           cfg.TTL,
			RetryInterval: cfg.RetryInterval,
		})
	}
	return lock.NewKeyedMutex()
}
