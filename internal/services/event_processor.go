package services

import (
	"context"
	"fmt"
)

// EventProcessor delivers a workflow event to live SSE clients and records
// it in the system log against the project or task it concerns.
type EventProcessor struct {
	hub *SSEHub
}

func NewEventProcessor(hub *SSEHub) *EventProcessor {
	return &EventProcessor{hub: hub}
}

func (p *EventProcessor) Process(ctx context.Context, event *WorkflowEvent) error {
	if event == nil {
		return nil
	}
	p.hub.Publish(*event)

	entityType, entityID := "project", event.ProjectID
	if event.TaskID != 0 {
		entityType, entityID = "task", event.TaskID
	}
	var userID *uint
	if event.ActorID != 0 {
		uid := event.ActorID
		userID = &uid
	}

	LogEntity("workflow", event.Type, describeEvent(event), userID, entityType, entityID, event)
	return nil
}

func describeEvent(e *WorkflowEvent) string {
	switch e.Type {
	case EventStageChanged:
		return fmt.Sprintf("project %d %s: %s -> %s", e.ProjectID, e.Message, e.FromStage, e.Stage)
	case EventVersionPublished:
		return fmt.Sprintf("project %d %s v%d published, stage %s", e.ProjectID, e.UploadClass, e.Version, e.Stage)
	case EventRemarkAdded:
		return fmt.Sprintf("remark added to project %d at %s", e.ProjectID, e.Stage)
	case EventTimerStarted:
		return fmt.Sprintf("timer started on task %d", e.TaskID)
	case EventTimerStopped:
		return fmt.Sprintf("timer stopped on task %d after %dms", e.TaskID, e.ElapsedMs)
	case EventTaskOverdue:
		return e.Message
	}
	return e.Type
}
