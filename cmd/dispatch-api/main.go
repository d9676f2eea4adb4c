package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/fieldserve/dispatch-api/api/swagger"
	"github.com/fieldserve/dispatch-api/internal/handler"
	"github.com/fieldserve/dispatch-api/internal/middleware"
	"github.com/fieldserve/dispatch-api/internal/repository"
	"github.com/fieldserve/dispatch-api/internal/service"
	"github.com/fieldserve/dispatch-api/pkg/cache"
	"github.com/fieldserve/dispatch-api/pkg/config"
	"github.com/fieldserve/dispatch-api/pkg/database"
	"github.com/fieldserve/dispatch-api/pkg/jobs"
	"github.com/fieldserve/dispatch-api/pkg/logger"
	corsmiddleware "github.com/fieldserve/dispatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldserve/dispatch-api/pkg/middleware/requestid"
)

// @title FieldServe Dispatch API
// @version 1.0.0
// @description Scheduling and dispatch decision engine for field service crews
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, distance lookups fall back to heuristics", "error", err)
		redisClient = nil
	}

	jobRepo := repository.NewJobRepository(db)
	techRepo := repository.NewTechnicianRepository(db)
	timeOffRepo := repository.NewTimeOffRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	distanceResolver := service.NewCachedDistanceResolver(nil, cacheRepo, cfg.Dispatch.DistanceCacheTTL, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifyQueue *jobs.Queue
	if cfg.Notify.Enabled {
		notifyQueue = jobs.NewQueue("assignment-notifications", func(ctx context.Context, job jobs.Job) error {
			logr.Info("assignment notification", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
			return nil
		}, jobs.QueueConfig{
			Workers:    cfg.Notify.Workers,
			BufferSize: cfg.Notify.BufferSize,
			MaxRetries: cfg.Notify.MaxRetries,
			RetryDelay: cfg.Notify.RetryDelay,
			Logger:     logr,
		})
		notifyQueue.Start(ctx)
		defer notifyQueue.Stop()
	}

	dispatchSvc := service.NewDispatchService(
		jobRepo, techRepo, timeOffRepo, vehicleRepo, db,
		distanceResolver, nil, nil,
		notifyQueue, metricsSvc, nil, logr,
		service.DispatchConfig{
			DefaultTimezone:       cfg.Dispatch.DefaultTimezone,
			DefaultBufferMinutes:  cfg.Dispatch.DefaultBufferMinutes,
			SlotSearchDays:        cfg.Dispatch.SlotSearchDays,
			SuggestionHorizonDays: cfg.Dispatch.SuggestionHorizonDays,
			Weights:               service.DefaultScoreWeights(),
		},
	)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "dispatch-api",
	})

	dispatchHandler := handler.NewDispatchHandler(dispatchSvc)
	resourceHandler := handler.NewResourceHandler(jobRepo, techRepo, timeOffRepo, vehicleRepo)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/ops/snapshot", metricsHandler.Snapshot)

	authed.GET("/jobs", resourceHandler.ListJobs)
	authed.GET("/technicians", resourceHandler.ListTechnicians)
	authed.GET("/vehicles", resourceHandler.ListVehicles)
	authed.GET("/time-off", resourceHandler.ListTimeOff)

	dispatch := authed.Group("/dispatch")
	dispatch.POST("/score", dispatchHandler.ScoreJob)
	dispatch.GET("/next-slot", dispatchHandler.NextSlot)
	dispatch.POST("/suggestions", dispatchHandler.Suggestions)
	dispatch.POST("/check-slot", dispatchHandler.CheckSlot)
	dispatch.POST("/validate", dispatchHandler.Validate)
	dispatch.POST("/route-order", dispatchHandler.RouteOrder)
	dispatch.GET("/route-sheet", dispatchHandler.RouteSheet)
	dispatch.GET("/staffing", dispatchHandler.StaffingSummary)

	writes := dispatch.Group("", middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleDispatcher))
	writes.POST("/auto-assign", dispatchHandler.AutoAssign)
	writes.POST("/assign", dispatchHandler.Assign)
	writes.POST("/unassign", dispatchHandler.Unassign)
	writes.POST("/bulk-assign", dispatchHandler.BulkAssign)
	writes.POST("/reschedule", dispatchHandler.BatchReschedule)
	writes.POST("/cancel", dispatchHandler.CancelCleanup)
	writes.POST("/multi-day", dispatchHandler.PlanMultiDay)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
