package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/lock"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SchedulerService runs the periodic maintenance jobs. Each pass takes a
// lease from the locker so that only one replica runs it.
type SchedulerService struct {
	db            *gorm.DB
	locker        lock.Locker
	events        EventQueue
	logService    *SystemLogService
	configService *SystemConfigService
	cronScheduler *cron.Cron
	Now           func() time.Time
}

func NewSchedulerService(db *gorm.DB, locker lock.Locker, events EventQueue) *SchedulerService {
	return &SchedulerService{
		db:            db,
		locker:        locker,
		events:        events,
		logService:    NewSystemLogService(db),
		configService: NewSystemConfigService(db),
		Now:           time.Now,
	}
}

func (s *SchedulerService) Start(cfg *config.SchedulerConfig) error {
	s.cronScheduler = cron.New()

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"log-cleanup", cfg.LogCleanupCron, func(ctx context.Context) error {
			_, err := s.logService.RunCleanup()
			return err
		}},
		{"overdue-scan", cfg.OverdueScanCron, func(ctx context.Context) error {
			_, err := s.ScanOverdueTasks(ctx)
			return err
		}},
	}

	for _, job := range jobs {
		if job.spec == "" {
			logger.Component("scheduler").Info().Str("job", job.name).Msg("scheduled job disabled")
			continue
		}
		job := job
		if _, err := s.cronScheduler.AddFunc(job.spec, func() { s.runExclusive(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
		logger.Component("scheduler").Info().Str("job", job.name).Str("cron", job.spec).Msg("scheduled job registered")
	}

	s.cronScheduler.Start()
	logger.Component("scheduler").Info().Msg("scheduler started")
	return nil
}

func (s *SchedulerService) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

func (s *SchedulerService) runExclusive(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	release, err := s.locker.Acquire(ctx, "cron:"+name)
	if err != nil {
		logger.Component("scheduler").Info().Str("job", name).Err(err).Msg("scheduled job skipped, lease held elsewhere")
		return
	}
	defer release()

	start := time.Now()
	if err := run(ctx); err != nil {
		logger.Component("scheduler").Error().Str("job", name).Err(err).Msg("scheduled job failed")
		LogError("scheduler", name, err.Error(), nil, "", "", nil)
		return
	}
	logger.Component("scheduler").Info().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job finished")
}

// ScanOverdueTasks marks open tasks whose due date passed and publishes one
// task.overdue event per task. A task is reported once until its due date
// changes.
func (s *SchedulerService) ScanOverdueTasks(ctx context.Context) (int, error) {
	if !s.configService.GetBool("overdue_scan_enabled", true) {
		return 0, nil
	}

	now := s.Now()
	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Select("id", "title", "due_date").
		Where("due_date < ? AND overdue_at IS NULL AND status NOT IN ?", now,
			[]string{models.TaskStatusCompleted, models.TaskStatusCancelled}).
		Find(&tasks).Error; err != nil {
		return 0, err
	}

	marked := 0
	for _, task := range tasks {
		res := s.db.WithContext(ctx).Model(&models.Task{}).
			Where("id = ? AND overdue_at IS NULL", task.ID).
			Update("overdue_at", now)
		if res.Error != nil {
			return marked, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		marked++
		emit(s.events, &WorkflowEvent{
			Type:    EventTaskOverdue,
			TaskID:  task.ID,
			Message: fmt.Sprintf("task %q is past its due date", task.Title),
		})
	}

	if marked > 0 {
		logger.Component("scheduler").Info().Int("count", marked).Msg("overdue tasks marked")
	}
	return marked, nil
}
