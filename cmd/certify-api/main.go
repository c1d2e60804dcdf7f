package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/certify-api/api/swagger"
	"github.com/noah-isme/certify-api/internal/handler"
	"github.com/noah-isme/certify-api/internal/middleware"
	"github.com/noah-isme/certify-api/internal/models"
	"github.com/noah-isme/certify-api/internal/repository"
	"github.com/noah-isme/certify-api/internal/service"
	"github.com/noah-isme/certify-api/pkg/cache"
	"github.com/noah-isme/certify-api/pkg/config"
	"github.com/noah-isme/certify-api/pkg/database"
	"github.com/noah-isme/certify-api/pkg/export"
	"github.com/noah-isme/certify-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/certify-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/certify-api/pkg/middleware/requestid"
	"github.com/noah-isme/certify-api/pkg/qrcode"
	"github.com/noah-isme/certify-api/pkg/storage"
)

// @title Certify API
// @version 1.0.0
// @description Certificate issuance and validation service
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction && cfg.Certificates.SigningSecret == "" {
		logr.Fatal("CERT_SIGNING_SECRET must be set in production")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, audit view caching disabled", zap.Error(err))
		redisClient = nil
	}

	certRepo := repository.NewCertificateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	go func() {
		ticker := time.NewTicker(cfg.Reports.SignedURLTTL)
		defer ticker.Stop()
		for range ticker.C {
			deleted, err := reportStore.CleanupOlderThan(cfg.Reports.SignedURLTTL)
			if err != nil {
				logr.Warn("report cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logr.Info("expired reports removed", zap.Int("count", len(deleted)))
			}
		}
	}()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Audit.CacheTTL, logr, redisClient != nil)
	auditSvc := service.NewAuditService(auditRepo, cacheSvc, cfg.Audit, logr)

	hasher := service.NewIntegrityHasher(cfg.Certificates.SigningSecret)
	certSvc := service.NewCertificateService(
		certRepo,
		service.NewCodeGenerator(),
		hasher,
		qrcode.NewEncoder(),
		auditSvc,
		metricsSvc,
		export.NewPDFExporter(),
		cfg.Certificates,
		logr,
	)
	validationSvc := service.NewValidationService(certRepo, hasher, auditSvc, metricsSvc, logr)
	bulkSvc := service.NewBulkService(certSvc, auditSvc, metricsSvc, export.NewCSVExporter(), reportStore, reportSigner, cfg.Bulk, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	certHandler := handler.NewCertificateHandler(certSvc)
	validationHandler := handler.NewValidationHandler(validationSvc)
	bulkHandler := handler.NewBulkHandler(bulkSvc, cfg.APIPrefix+"/certificates/bulk/reports", logr)
	auditHandler := handler.NewAuditHandler(auditSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/validate/:code", validationHandler.ValidatePublic)
		api.GET("/certificates/bulk/reports/:token", bulkHandler.DownloadReport)

		authed := api.Group("", middleware.JWT(authSvc))
		{
			readers := authed.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleViewer))
			{
				readers.GET("/certificates", certHandler.List)
				readers.GET("/certificates/:id", certHandler.Get)
				readers.GET("/certificates/:id/history", certHandler.History)
				readers.GET("/certificates/code/:code/pdf", certHandler.DownloadPDF)
				readers.GET("/certificates/code/:code/validate", validationHandler.ValidateAdmin)
				readers.GET("/audit/validation-stats", auditHandler.ValidationStats)
				readers.GET("/audit/anomalies", auditHandler.Anomalies)
			}

			writers := authed.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
			{
				writers.POST("/certificates", certHandler.Create)
				writers.POST("/certificates/:id/revoke", certHandler.Revoke)
				writers.PATCH("/certificates/:id/status", certHandler.UpdateStatus)
				writers.POST("/certificates/bulk", bulkHandler.Upload)
			}

			admins := authed.Group("", middleware.RequireRoles(models.RoleSuperAdmin))
			{
				admins.DELETE("/certificates/:id", certHandler.Delete)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
