package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/timetable-api/api/swagger"
	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/handler"
	"github.com/campushq/timetable-api/internal/middleware"
	"github.com/campushq/timetable-api/internal/repository"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/cache"
	"github.com/campushq/timetable-api/pkg/config"
	"github.com/campushq/timetable-api/pkg/database"
	"github.com/campushq/timetable-api/pkg/jobs"
	"github.com/campushq/timetable-api/pkg/logger"
	"github.com/campushq/timetable-api/pkg/middleware/transport"
)

// @title Timetable API
// @version 1.0.0
// @description Multi-tenant school timetable scheduling engine
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", redisErr)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	periodRepo := repository.NewPeriodRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	capabilityRepo := repository.NewCapabilityRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	var timetableCache *service.TimetableCache
	if cacheRepo != nil {
		timetableCache = service.NewTimetableCache(cacheRepo, cfg.Cache.Enabled, cfg.Cache.TTL, logr)
	} else {
		timetableCache = service.NewTimetableCache(nil, false, cfg.Cache.TTL, logr)
	}
	metricsSvc := service.NewMetricsService()
	locks := service.NewTenantLocks()

	schedulerSvc := service.NewSchedulerService(
		capabilityRepo, periodRepo, roomRepo, timetableRepo,
		locks, timetableCache, metricsSvc, nil, logr,
		service.SchedulerConfig{
			DefaultStrategy: cfg.Scheduler.DefaultStrategy,
			SolverTimeout:   cfg.Scheduler.SolverTimeout,
			SolverMaxNodes:  cfg.Scheduler.SolverMaxNodes,
			AllocateRooms:   cfg.Scheduler.AllocateRooms,
		},
	)
	auditSvc := service.NewAuditService(timetableRepo, capabilityRepo, metricsSvc, logr)
	substitutionSvc := service.NewSubstitutionService(timetableRepo, capabilityRepo, locks, timetableCache, metricsSvc, nil, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, timetableCache, nil, logr)
	catalogSvc := service.NewCatalogService(periodRepo, roomRepo, capabilityRepo, nil, logr)

	queue := jobs.NewQueue("timetable-generation", func(ctx context.Context, job jobs.Job) error {
		_, genErr := schedulerSvc.Generate(ctx, job.Payload.TenantID, dto.GenerateTimetableRequest{
			Strategy:      job.Payload.Strategy,
			AllocateRooms: job.Payload.AllocateRooms,
			AllOrNothing:  job.Payload.AllOrNothing,
		})
		return genErr
	}, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	timetableHandler := handler.NewTimetableHandler(schedulerSvc, auditSvc, substitutionSvc, timetableSvc, queue)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(transport.RequestID())
	r.Use(logger.GinMiddleware(logr))
	r.Use(transport.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	tenant := api.Group("/tenants/:tenantId")
	{
		tenant.POST("/timetable/generate", timetableHandler.Generate)
		tenant.GET("/timetable/audit", timetableHandler.Audit)
		tenant.POST("/timetable/substitute", timetableHandler.Substitute)
		tenant.GET("/timetable", timetableHandler.List)
		tenant.GET("/timetable/weekly", timetableHandler.Weekly)
		tenant.GET("/timetable/export", timetableHandler.Export)

		tenant.GET("/periods", catalogHandler.ListPeriods)
		tenant.POST("/periods", catalogHandler.CreatePeriod)
		tenant.DELETE("/periods/:id", catalogHandler.DeletePeriod)

		tenant.GET("/rooms", catalogHandler.ListRooms)
		tenant.POST("/rooms", catalogHandler.CreateRoom)
		tenant.DELETE("/rooms/:id", catalogHandler.DeleteRoom)

		tenant.GET("/capabilities", catalogHandler.ListCapabilities)
		tenant.POST("/capabilities", catalogHandler.CreateCapability)
		tenant.PATCH("/capabilities/:id", catalogHandler.UpdateCapability)
		tenant.DELETE("/capabilities/:id", catalogHandler.DeleteCapability)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
