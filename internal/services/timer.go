package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/lock"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
)

const (
	TimerActionStart = "start"
	TimerActionPause = "pause"
)

// TimerService runs the per-task stopwatch. A user has at most one running
// timer across all tasks they are assigned to: starting one stops the rest.
type TimerService struct {
	db     *gorm.DB
	locker lock.Locker
	events EventQueue
	Now    func() time.Time
}

func NewTimerService(db *gorm.DB, locker lock.Locker, events EventQueue) *TimerService {
	return &TimerService{db: db, locker: locker, events: events, Now: time.Now}
}

type stoppedTimer struct {
	taskID    uint
	elapsedMs int64
}

// Toggle dispatches the start and pause actions.
func (s *TimerService) Toggle(ctx context.Context, taskID uint, actor Actor, action string) (*models.Task, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case TimerActionStart:
		return s.Start(ctx, taskID, actor)
	case TimerActionPause:
		return s.Pause(ctx, taskID, actor)
	}
	return nil, fmt.Errorf("%w: timer action must be start or pause, got %q", apperrors.ErrInvalidAction, action)
}

// Start runs the task's timer after stopping every other running timer of
// the task's assignees and the actor. Starting a running task is a no-op.
func (s *TimerService) Start(ctx context.Context, taskID uint, actor Actor) (*models.Task, error) {
	task, err := loadTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	if !canWorkOn(task, actor) {
		return nil, fmt.Errorf("timer of task %d: %w", taskID, apperrors.ErrForbidden)
	}
	if task.IsTimerRunning {
		return task, nil
	}

	users := affectedUsers(task, actor)
	keys := make([]string, 0, len(users))
	for _, uid := range users {
		keys = append(keys, lock.UserKey(uid))
	}
	release, err := lock.AcquireAll(ctx, s.locker, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	var stopped []stoppedTimer
	var started bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := loadTask(tx, taskID)
		if err != nil {
			return err
		}
		if target.IsTimerRunning {
			task = target
			return nil
		}
		if !sameIDs(affectedUsers(target, actor), users) {
			return fmt.Errorf("assignees of task %d changed while starting its timer: %w", taskID, apperrors.ErrConflict)
		}

		now := s.Now()
		running, err := runningTasksOf(tx, users, taskID)
		if err != nil {
			return err
		}
		for _, id := range running {
			elapsed, ok, err := stopTimer(tx, id, now)
			if err != nil {
				return err
			}
			if ok {
				stopped = append(stopped, stoppedTimer{taskID: id, elapsedMs: elapsed})
			}
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND is_timer_running = ?", taskID, false).
			Updates(map[string]interface{}{
				"is_timer_running": true,
				"start_time":       now,
				"status":           models.TaskStatusInProgress,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("timer of task %d was started concurrently: %w", taskID, apperrors.ErrConflict)
		}
		// The row is now locked. Re-read assignees: one added after the first
		// read would have a running timer nobody stopped.
		var current []uint
		if err := tx.Model(&models.TaskAssignee{}).Where("task_id = ?", taskID).Pluck("user_id", &current).Error; err != nil {
			return err
		}
		if !sameIDs(append(current, actor.UserID), users) {
			return fmt.Errorf("assignees of task %d changed while starting its timer: %w", taskID, apperrors.ErrConflict)
		}

		claims := make([]models.TimerClaim, 0, len(target.Assignees))
		for _, a := range target.Assignees {
			claims = append(claims, models.TimerClaim{UserID: a.UserID, TaskID: taskID, ClaimedAt: now})
		}
		if len(claims) > 0 {
			if err := tx.Create(&claims).Error; err != nil {
				return conflictOnDuplicate(err, fmt.Sprintf("timer claim for task %d", taskID))
			}
		}

		task, err = loadTask(tx, taskID)
		started = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, st := range stopped {
		logger.Component("timer").Info().Uint("task_id", st.taskID).Int64("elapsed_ms", st.elapsedMs).Msg("timer stopped by another start")
		emit(s.events, &WorkflowEvent{Type: EventTimerStopped, TaskID: st.taskID, ActorID: actor.UserID, ElapsedMs: st.elapsedMs})
	}
	if started {
		logger.Component("timer").Info().Uint("task_id", taskID).Uint("user_id", actor.UserID).Msg("timer started")
		emit(s.events, &WorkflowEvent{Type: EventTimerStarted, TaskID: taskID, ActorID: actor.UserID})
	}
	return task, nil
}

// Pause stops the task's timer and adds the elapsed time. Pausing a stopped
// timer returns the task unchanged.
func (s *TimerService) Pause(ctx context.Context, taskID uint, actor Actor) (*models.Task, error) {
	task, err := loadTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	if !canWorkOn(task, actor) {
		return nil, fmt.Errorf("timer of task %d: %w", taskID, apperrors.ErrForbidden)
	}
	if !task.IsTimerRunning {
		return task, nil
	}

	var elapsed int64
	var paused bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		elapsed, paused, err = stopTimer(tx, taskID, s.Now())
		if err != nil {
			return err
		}
		task, err = loadTask(tx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if paused {
		logger.Component("timer").Info().Uint("task_id", taskID).Int64("elapsed_ms", elapsed).Msg("timer paused")
		emit(s.events, &WorkflowEvent{Type: EventTimerStopped, TaskID: taskID, ActorID: actor.UserID, ElapsedMs: elapsed})
	}
	return task, nil
}

// ActiveFor returns the running task assigned to userID, or nil.
func (s *TimerService) ActiveFor(ctx context.Context, userID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Joins("JOIN task_assignees ON task_assignees.task_id = tasks.id").
		Where("task_assignees.user_id = ? AND tasks.is_timer_running = ?", userID, true).
		Preload("Assignees").
		Order("tasks.start_time DESC").
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task.FillAssignedTo()
	return &task, nil
}

// stopTimer folds the running interval into time_spent and releases the
// task's claims. ok is false when the timer was already stopped.
func stopTimer(tx *gorm.DB, taskID uint, now time.Time) (elapsed int64, ok bool, err error) {
	var task models.Task
	if err := tx.Select("id", "start_time", "is_timer_running").First(&task, taskID).Error; err != nil {
		return 0, false, notFound(err, "task %d", taskID)
	}
	if !task.IsTimerRunning {
		// drop claims a stopped task may still hold
		return 0, false, tx.Where("task_id = ?", taskID).Delete(&models.TimerClaim{}).Error
	}
	if task.StartTime != nil {
		elapsed = now.Sub(*task.StartTime).Milliseconds()
	}
	if elapsed < 0 {
		elapsed = 0
	}

	res := tx.Model(&models.Task{}).
		Where("id = ? AND is_timer_running = ?", taskID, true).
		Updates(map[string]interface{}{
			"is_timer_running": false,
			"start_time":       nil,
			"time_spent_ms":    gorm.Expr("time_spent_ms + ?", elapsed),
			"updated_at":       now,
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TimerClaim{}).Error; err != nil {
		return 0, false, err
	}
	return elapsed, true, nil
}

// runningTasksOf returns running tasks, other than except, that hold a claim
// for or are assigned to any of users.
func runningTasksOf(tx *gorm.DB, users []uint, except uint) ([]uint, error) {
	var assigned []uint
	if err := tx.Model(&models.TaskAssignee{}).
		Joins("JOIN tasks ON tasks.id = task_assignees.task_id").
		Where("task_assignees.user_id IN ? AND tasks.is_timer_running = ? AND tasks.id <> ?", users, true, except).
		Pluck("task_assignees.task_id", &assigned).Error; err != nil {
		return nil, err
	}
	var claimed []uint
	if err := tx.Model(&models.TimerClaim{}).
		Where("user_id IN ? AND task_id <> ?", users, except).
		Pluck("task_id", &claimed).Error; err != nil {
		return nil, err
	}
	return uniqueIDs(append(assigned, claimed...)), nil
}

func affectedUsers(task *models.Task, actor Actor) []uint {
	return uniqueIDs(append(append([]uint{}, task.AssignedTo...), actor.UserID))
}
