package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "services.db"),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	require.NoError(t, models.SeedDefaultData(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role workflow.Role) Actor {
	t.Helper()
	user := models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return Actor{UserID: user.ID, Username: username, Role: role}
}

func createProjectAt(t *testing.T, db *gorm.DB, owner Actor, stage workflow.Stage) *models.Project {
	t.Helper()
	project := models.Project{Name: "Spring campaign", OwnerID: owner.UserID, CurrentStage: stage}
	require.NoError(t, db.Create(&project).Error)
	return &project
}

// fakeClock is a settable time source for services with a Now field.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingQueue collects enqueued events synchronously.
type recordingQueue struct {
	mu     sync.Mutex
	events []WorkflowEvent
}

func (q *recordingQueue) Enqueue(event *WorkflowEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, *event)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func (q *recordingQueue) types() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.events))
	for _, e := range q.events {
		out = append(out, e.Type)
	}
	return out
}
