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

	"github.com/oapet-edu/timetable-api/internal/handler"
	"github.com/oapet-edu/timetable-api/internal/middleware"
	"github.com/oapet-edu/timetable-api/internal/repository"
	"github.com/oapet-edu/timetable-api/internal/service"
	"github.com/oapet-edu/timetable-api/pkg/cache"
	"github.com/oapet-edu/timetable-api/pkg/config"
	"github.com/oapet-edu/timetable-api/pkg/database"
	"github.com/oapet-edu/timetable-api/pkg/jobs"
	"github.com/oapet-edu/timetable-api/pkg/logger"
	corsmiddleware "github.com/oapet-edu/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/oapet-edu/timetable-api/pkg/middleware/requestid"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// progress reporting degrades to logs only
		logr.Sugar().Warnw("redis unavailable, run progress will not be stored", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	runRepo := repository.NewOptimizationRunRepository(db)
	progressRepo := repository.NewProgressRepository(redisClient, cfg.Jobs.ProgressTTL, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	loader := service.NewSnapshotLoader(scheduleRepo, sessionRepo, courseRepo, teacherRepo, roomRepo, slotRepo, prefRepo, logr)
	catalogSvc := service.NewCatalogService(courseRepo, roomRepo, slotRepo, teacherRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, sessionRepo, courseRepo, teacherRepo, validate, logr)
	exportSvc := service.NewExportService(loader, scheduleRepo, sessionRepo, nil, nil, logr)
	generationSvc := service.NewGenerationService(loader, scheduleRepo, scheduleRepo, sessionRepo, metricsSvc, cfg.Generator, validate, logr)
	optimizationSvc := service.NewOptimizationService(loader, runRepo, sessionRepo, scheduleRepo, progressRepo, metricsSvc, cfg.Optimizer, validate, logr)

	queue := jobs.NewQueue("optimizations", optimizationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	optimizationSvc.AttachQueue(queue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	handler.Register(r.Group(prefix), handler.Handlers{
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		Schedule:     handler.NewScheduleHandler(scheduleSvc, exportSvc),
		Generation:   handler.NewGenerationHandler(generationSvc),
		Optimization: handler.NewOptimizationHandler(optimizationSvc),
		Metrics:      metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
