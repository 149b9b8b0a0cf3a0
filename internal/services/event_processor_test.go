package services

import (
	"context"
	"testing"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventProcessor_PublishesAndLogs(t *testing.T) {
	db := newTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	hub := NewSSEHub()
	ch := hub.Subscribe("client-1", 0)
	defer hub.Unsubscribe("client-1")
	p := NewEventProcessor(hub)

	event := &WorkflowEvent{
		Type:      EventStageChanged,
		ProjectID: 12,
		ActorID:   3,
		FromStage: "review_1",
		Stage:     "review_2",
		Message:   "approved",
	}
	require.NoError(t, p.Process(context.Background(), event))

	select {
	case got := <-ch:
		assert.Equal(t, EventStageChanged, got.Type)
		assert.EqualValues(t, 12, got.ProjectID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered to subscriber")
	}

	var entry models.SystemLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "project", 12).First(&entry).Error)
	assert.Equal(t, EventStageChanged, entry.Action)
	assert.Equal(t, "project 12 approved: review_1 -> review_2", entry.Message)
	require.NotNil(t, entry.UserID)
	assert.EqualValues(t, 3, *entry.UserID)
}

func TestEventProcessor_TaskEventsLogAgainstTask(t *testing.T) {
	db := newTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })
	p := NewEventProcessor(NewSSEHub())

	require.NoError(t, p.Process(context.Background(), &WorkflowEvent{Type: EventTimerStopped, TaskID: 4, ElapsedMs: 1500}))
	require.NoError(t, p.Process(context.Background(), nil))

	var entry models.SystemLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "task", 4).First(&entry).Error)
	assert.Equal(t, "timer stopped on task 4 after 1500ms", entry.Message)
	assert.Nil(t, entry.UserID)
}
