package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/aleks-coins-api/api/swagger"
	"github.com/noah-isme/aleks-coins-api/internal/handler"
	"github.com/noah-isme/aleks-coins-api/internal/middleware"
	"github.com/noah-isme/aleks-coins-api/internal/repository"
	"github.com/noah-isme/aleks-coins-api/internal/service"
	"github.com/noah-isme/aleks-coins-api/pkg/cache"
	"github.com/noah-isme/aleks-coins-api/pkg/config"
	"github.com/noah-isme/aleks-coins-api/pkg/database"
	"github.com/noah-isme/aleks-coins-api/pkg/jobs"
	"github.com/noah-isme/aleks-coins-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aleks-coins-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aleks-coins-api/pkg/middleware/requestid"
	"github.com/noah-isme/aleks-coins-api/pkg/storage"
)

// @title ALEKS Coins API
// @version 1.0.0
// @description Gamification portal backend: ALEKS progress qualification, coin balances and redemptions
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, leaderboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	periodRepo := repository.NewPeriodRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	thresholds := service.Thresholds{MinMinutes: cfg.Coins.MinMinutes, MinTopics: cfg.Coins.MinTopics}

	// a cache repository without a client degrades to miss-on-read, no-op-on-write
	leaderboardCache := repository.NewCacheRepository(nil, logr)
	if cfg.Leaderboard.Enabled && redisClient != nil {
		leaderboardCache = repository.NewCacheRepository(redisClient, logr)
	}
	defer leaderboardCache.Close() //nolint:errcheck

	balanceService := service.NewBalanceService(progressRepo, overrideRepo, adjustmentRepo, leaderboardCache, thresholds, cfg.Coins.DegradedBalances, cfg.Leaderboard.CacheTTL, logr, metrics)
	leaderboardWorker := service.NewLeaderboardWorker(balanceService, logr)
	queue := jobs.NewQueue("leaderboard", leaderboardWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})

	authService := service.NewAuthService(validate, logr, service.AuthConfig{
		PortalPasswordHash: cfg.Auth.PortalPasswordHash,
		TokenSecret:        cfg.Auth.TokenSecret,
		TokenExpiration:    cfg.Auth.TokenExpiration,
		Issuer:             cfg.Auth.Issuer,
	})
	periodService := service.NewPeriodService(periodRepo, validate, logr)
	progressService := service.NewProgressService(progressRepo, periodRepo, overrideRepo, queue, thresholds, validate, logr, metrics)
	overrideService := service.NewOverrideService(overrideRepo, queue, validate, logr)
	adjustmentService := service.NewAdjustmentService(adjustmentRepo, periodRepo, queue, validate, logr)
	requestService := service.NewRequestService(requestRepo, adjustmentService, validate, logr)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare exports directory", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SigningSecret, cfg.Exports.ResultTTL)
		exportService = service.NewExportService(progressService, balanceService, exportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.ResultTTL,
		}, logr, nil, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authService)
	periodHandler := handler.NewPeriodHandler(periodService)
	progressHandler := handler.NewProgressHandler(progressService)
	overrideHandler := handler.NewOverrideHandler(overrideService)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentService)
	balanceHandler := handler.NewBalanceHandler(balanceService)
	requestHandler := handler.NewRequestHandler(requestService)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	// student-facing routes, no authentication
	api.GET("/progress/:studentId", progressHandler.GetStudent)
	api.GET("/balance/:studentId", balanceHandler.GetStudent)
	api.GET("/leaderboard", balanceHandler.Leaderboard)
	api.POST("/requests", requestHandler.Submit)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authService))
	{
		admin.GET("/periods", periodHandler.List)
		admin.POST("/periods", periodHandler.Create)
		admin.GET("/periods/:key", periodHandler.Get)
		admin.PUT("/periods/:key", periodHandler.Update)
		admin.DELETE("/periods/:key", periodHandler.Delete)
		admin.GET("/periods/:key/sections/:sectionId/records", progressHandler.ListSection)

		admin.POST("/uploads", progressHandler.Upload)

		admin.GET("/overrides/:studentId", overrideHandler.ListByStudent)
		admin.PUT("/overrides", overrideHandler.Set)
		admin.DELETE("/overrides/:id", overrideHandler.Delete)

		admin.GET("/adjustments/:studentId", adjustmentHandler.History)
		admin.POST("/adjustments", adjustmentHandler.Create)
		admin.DELETE("/adjustments/:id", adjustmentHandler.Deactivate)

		admin.GET("/requests", requestHandler.List)
		admin.POST("/requests/:id/approve", requestHandler.Approve)
		admin.POST("/requests/:id/reject", requestHandler.Reject)

		admin.POST("/leaderboard/refresh", balanceHandler.Refresh)
		admin.GET("/metrics", metricsHandler.Snapshot)

		if exportService != nil {
			exportHandler := handler.NewExportHandler(exportService)
			admin.POST("/exports", exportHandler.Generate)
			api.GET("/export/:token", exportHandler.Download)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
