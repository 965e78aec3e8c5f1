package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/unitdesk/form-filer/api/swagger"
	"github.com/unitdesk/form-filer/internal/handler"
	"github.com/unitdesk/form-filer/internal/middleware"
	"github.com/unitdesk/form-filer/internal/service"
	"github.com/unitdesk/form-filer/internal/storage"
	"github.com/unitdesk/form-filer/pkg/cache"
	"github.com/unitdesk/form-filer/pkg/config"
	"github.com/unitdesk/form-filer/pkg/logger"
	corsmiddleware "github.com/unitdesk/form-filer/pkg/middleware/cors"
	reqidmiddleware "github.com/unitdesk/form-filer/pkg/middleware/requestid"
)

// @title Form Filer
// @version 0.1.0
// @description Files form attachments into classification folders on response submission
// @BasePath /
// @schemes http

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

	store, err := newStore(cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage backend", "backend", cfg.Storage.Backend, "error", err)
	}

	deduper := newDeduper(cfg, logr)
	metrics := service.NewMetricsService()
	intake := service.NewIntakeService(store, metrics, logr, cfg.Intake)
	webhook := handler.NewWebhookHandler(intake, deduper, metrics, validator.New(), logr, handler.WebhookHandlerConfig{
		SharedSecret: cfg.Webhook.SharedSecret,
		DedupTTL:     cfg.Dedup.TTL,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.POST("/webhooks/form-response", webhook.HandleFormResponse)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "backend", cfg.Storage.Backend)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendLocal:
		return storage.NewLocalStore(cfg.Storage.LocalDir)
	case config.BackendS3:
		return storage.NewS3Store(context.Background(), cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newDeduper(cfg *config.Config, logr *zap.Logger) service.Deduper {
	if !cfg.Dedup.Enabled {
		return nil
	}

	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, using in-process dedup", "error", err)
		return service.NewMemoryDeduper()
	}
	return service.NewRedisDeduper(client)
}
