package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
)

const (
	TaskTypeWorkflowEvent = "workflow:event"
)

// Asynq queues. Project events outweigh task events when both are backed up.
const (
	QueueProjects = "projects"
	QueueTasks    = "tasks"
)

// Workflow event types
const (
	EventStageChanged     = "project.stage_changed"
	EventVersionPublished = "project.version_published"
	EventRemarkAdded      = "project.remark_added"
	EventTimerStarted     = "task.timer_started"
	EventTimerStopped     = "task.timer_stopped"
	EventTaskOverdue      = "task.overdue"
)

// WorkflowEvent is a notification about a state change in a project or task.
type WorkflowEvent struct {
	Type        string    `json:"type"`
	ProjectID   uint      `json:"project_id,omitempty"`
	TaskID      uint      `json:"task_id,omitempty"`
	ActorID     uint      `json:"actor_id,omitempty"`
	FromStage   string    `json:"from_stage,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	UploadClass string    `json:"upload_type,omitempty"`
	Version     int       `json:"version,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms,omitempty"`
	Message     string    `json:"message,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// QueueFor picks the asynq queue an event is delivered on.
func QueueFor(event *WorkflowEvent) string {
	if strings.HasPrefix(event.Type, "task.") {
		return QueueTasks
	}
	return QueueProjects
}

// EventQueue defines the interface for workflow event delivery
type EventQueue interface {
	// Enqueue adds an event to the queue
	Enqueue(event *WorkflowEvent) error
	// IsAsync returns true if queue processes events asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global event queue instance
var (
	globalEventQueue EventQueue
	eventQueueOnce   sync.Once
)

// InitEventQueue initializes the global event queue based on config
func InitEventQueue(cfg *config.Config) EventQueue {
	eventQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[EventQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalEventQueue = NewSyncQueue()
			} else {
				logger.Infof("[EventQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalEventQueue = queue
			}
		} else {
			logger.Infof("[EventQueue] Sync queue initialized (Redis disabled)")
			globalEventQueue = NewSyncQueue()
		}
	})
	return globalEventQueue
}

// GetEventQueue returns the global event queue instance
func GetEventQueue() EventQueue {
	return globalEventQueue
}

// emit enqueues an event and only logs failures; a lost notification never
// fails the operation that produced it.
func emit(q EventQueue, event *WorkflowEvent) {
	if q == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := q.Enqueue(event); err != nil {
		logger.Warn().Err(err).Str("type", event.Type).Msg("failed to enqueue workflow event")
	}
}

// AsyncQueue implements EventQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(event *WorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeWorkflowEvent, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue(QueueFor(event)),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("id", info.ID).Str("type", event.Type).Msg("workflow event enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements EventQueue in-process (no Redis)
type SyncQueue struct {
	processor func(context.Context, *WorkflowEvent) error
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that handles each event
func (q *SyncQueue) SetProcessor(processor func(context.Context, *WorkflowEvent) error) {
	q.processor = processor
}

// Enqueue hands the event to the processor on its own goroutine so the
// request that produced it is not held up.
func (q *SyncQueue) Enqueue(event *WorkflowEvent) error {
	if q.processor == nil {
		logger.Debug().Str("type", event.Type).Msg("no event processor set, dropping event")
		return nil
	}

	go func() {
		if err := q.processor(context.Background(), event); err != nil {
			logger.Warnf("[SyncQueue] Event processing failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
