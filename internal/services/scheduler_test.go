package services

import (
	"context"
	"testing"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/lock"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newScheduler(db *gorm.DB, clock *fakeClock, events EventQueue) *SchedulerService {
	s := NewSchedulerService(db, lock.NewMemoryLocker(time.Second), events)
	s.Now = clock.Now
	return s
}

func setDue(t *testing.T, db *gorm.DB, task *models.Task, due time.Time, status string) {
	t.Helper()
	require.NoError(t, db.Model(task).Updates(map[string]interface{}{"due_date": due, "status": status}).Error)
}

func TestScheduler_ScanOverdueTasksReportsOnce(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock()
	events := &recordingQueue{}
	s := newScheduler(db, clock, events)
	mgr := createUser(t, db, "mgr", workflow.RoleManager)

	late := createTask(t, db, mgr, mgr)
	setDue(t, db, late, clock.Now().Add(-time.Hour), models.TaskStatusInProgress)
	done := createTask(t, db, mgr, mgr)
	setDue(t, db, done, clock.Now().Add(-time.Hour), models.TaskStatusCompleted)
	future := createTask(t, db, mgr, mgr)
	setDue(t, db, future, clock.Now().Add(time.Hour), models.TaskStatusPending)
	ctx := context.Background()

	n, err := s.ScanOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.ScanOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already reported")

	clock.Advance(2 * time.Hour)
	n, err = s.ScanOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the future task is now late")
	assert.Equal(t, []string{EventTaskOverdue, EventTaskOverdue}, events.types())
}

func TestScheduler_DueDateChangeRearmsOverdue(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock()
	s := newScheduler(db, clock, nil)
	tasks := NewTaskService(db, nil, nil)
	mgr := createUser(t, db, "mgr", workflow.RoleManager)
	task := createTask(t, db, mgr, mgr)
	setDue(t, db, task, clock.Now().Add(-time.Hour), models.TaskStatusPending)
	ctx := context.Background()

	n, err := s.ScanOverdueTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	due := "2026-03-01"
	_, err = tasks.Update(ctx, task.ID, mgr, &UpdateTaskRequest{DueDate: &due})
	require.NoError(t, err)

	n, err = s.ScanOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScheduler_ScanDisabledByConfig(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock()
	s := newScheduler(db, clock, nil)
	mgr := createUser(t, db, "mgr", workflow.RoleManager)
	task := createTask(t, db, mgr, mgr)
	setDue(t, db, task, clock.Now().Add(-time.Hour), models.TaskStatusPending)

	require.NoError(t, NewSystemConfigService(db).Set("overdue_scan_enabled", "false"))
	n, err := s.ScanOverdueTasks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScheduler_StartRejectsBadCron(t *testing.T) {
	db := newTestDB(t)
	s := newScheduler(db, newFakeClock(), nil)

	err := s.Start(&config.SchedulerConfig{OverdueScanCron: "every hour"})
	assert.Error(t, err)

	s = newScheduler(db, newFakeClock(), nil)
	require.NoError(t, s.Start(&config.SchedulerConfig{LogCleanupCron: "0 3 * * *"}))
	s.Stop()
}

func TestScheduler_RunExclusiveSkipsWhenLeaseHeld(t *testing.T) {
	db := newTestDB(t)
	locker := lock.NewMemoryLocker(50 * time.Millisecond)
	s := NewSchedulerService(db, locker, nil)

	release, err := locker.Acquire(context.Background(), "cron:overdue-scan")
	require.NoError(t, err)
	defer release()

	ran := false
	s.runExclusive("overdue-scan", func(context.Context) error {
		ran = true
		return nil
	})
	assert.False(t, ran)

	s.runExclusive("log-cleanup", func(context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, ran)
}
