package main

import (
	"context"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/handlers"
	"github.com/pragati08ps/design-approval-system/internal/lock"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/internal/storage"
	"github.com/pragati08ps/design-approval-system/internal/utils"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	eventQueue services.EventQueue
	worker     *services.Worker
	scheduler  *services.SchedulerService
	redis      *redis.Client

	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	projectHandler      *handlers.ProjectHandler
	uploadHandler       *handlers.UploadHandler
	remarkHandler       *handlers.RemarkHandler
	taskHandler         *handlers.TaskHandler
	analyticsHandler    *handlers.AnalyticsHandler
	sseHandler          *handlers.SSEHandler
	systemLogHandler    *handlers.SystemLogHandler
	systemConfigHandler *handlers.SystemConfigHandler
	healthHandler       *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	services.InitSystemLogger(db)

	svc := &appServices{}

	// Workflow events go to the SSE hub and the system log, through Redis when enabled
	processor := services.NewEventProcessor(services.GetSSEHub())
	svc.eventQueue = services.InitEventQueue(cfg)
	if syncQueue, ok := svc.eventQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor.Process)
	} else if cfg.Redis.Enabled {
		svc.worker = services.NewWorker(&cfg.Redis, processor.Process)
		if svc.worker != nil {
			svc.worker.Start()
		}
	}

	timerLocker, schedulerLocker := svc.buildLockers(cfg)

	blobs := storage.NewDBBlobStore(db)
	ledger := services.NewLedgerService(db)
	audit := services.NewAuditTrailService(db, svc.eventQueue)
	authService := services.NewAuthService(db, &cfg.JWT)

	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	svc.scheduler = services.NewSchedulerService(db, schedulerLocker, svc.eventQueue)
	if err := svc.scheduler.Start(&cfg.Scheduler); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	svc.authHandler = handlers.NewAuthHandler(authService)
	svc.userHandler = handlers.NewUserHandler(services.NewUserService(db))
	svc.projectHandler = handlers.NewProjectHandler(services.NewProjectService(db, audit, svc.eventQueue), audit)
	svc.uploadHandler = handlers.NewUploadHandler(services.NewArtifactService(db, blobs, ledger, svc.eventQueue), cfg.Upload.MaxSizeMB)
	svc.remarkHandler = handlers.NewRemarkHandler(audit)
	svc.taskHandler = handlers.NewTaskHandler(
		services.NewTaskService(db, blobs, timerLocker),
		services.NewTimerService(db, timerLocker, svc.eventQueue),
		cfg.Upload.MaxSizeMB,
	)
	svc.analyticsHandler = handlers.NewAnalyticsHandler(services.NewAnalyticsService(db, services.NewWorkCalendar(cfg.Calendar.Country)))
	svc.sseHandler = handlers.NewSSEHandler(services.GetSSEHub())
	svc.systemLogHandler = handlers.NewSystemLogHandler(services.NewSystemLogService(db))
	svc.systemConfigHandler = handlers.NewSystemConfigHandler(services.NewSystemConfigService(db))
	svc.healthHandler = handlers.NewHealthHandler(db)

	return svc
}

// buildLockers picks the timer lock backend from config. Cron leases need to
// be shared between replicas, so they use redis when available and the
// database otherwise.
func (s *appServices) buildLockers(cfg *config.Config) (timer, scheduler lock.Locker) {
	db := models.GetDB()
	timeout := time.Duration(cfg.Timer.LockTimeoutMs) * time.Millisecond
	ttl := time.Duration(cfg.Timer.LockTTLSecs) * time.Second

	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, locks fall back to the database")
		} else {
			s.redis = client
		}
	}

	scheduler = lock.NewDBLocker(db, "scheduler", 100*time.Millisecond, 10*time.Minute)
	if s.redis != nil {
		scheduler = lock.NewRedisLocker(s.redis, 100*time.Millisecond, 10*time.Minute)
	}

	switch cfg.Timer.LockBackend {
	case "redis":
		if s.redis != nil {
			timer = lock.NewRedisLocker(s.redis, timeout, ttl)
			break
		}
		logger.Warn().Msg("timer.lock_backend is redis but Redis is not available, using database")
		timer = lock.NewDBLocker(db, "timer", timeout, ttl)
	case "database":
		timer = lock.NewDBLocker(db, "timer", timeout, ttl)
	default:
		timer = lock.NewMemoryLocker(timeout)
	}
	logger.Info().Str("backend", cfg.Timer.LockBackend).Dur("timeout", timeout).Msg("timer locker ready")
	return timer, scheduler
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.eventQueue != nil {
		s.eventQueue.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if err := models.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
}
