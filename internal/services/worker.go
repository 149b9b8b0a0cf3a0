package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
)

// EventHandler handles one decoded workflow event.
type EventHandler func(context.Context, *WorkflowEvent) error

// Worker drains workflow events from Redis and hands them to an EventHandler.
type Worker struct {
	server  *asynq.Server
	handler EventHandler

	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, handler EventHandler) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueProjects: 3,
			QueueTasks:    1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).
				Str("task_type", task.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("workflow event failed")
		}),
	})

	return &Worker{server: server, handler: handler}
}

// Start runs the asynq server in the background. Calling it twice is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeWorkflowEvent, w.handle)

	w.running = true
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		logger.Info().Msg("event worker started")
		if err := w.server.Run(mux); err != nil {
			logger.Error().Err(err).Msg("event worker stopped with error")
		}
	}()
}

// Stop waits for in-flight events before returning.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	w.server.Shutdown()
	w.wg.Wait()
	w.running = false
	logger.Info().Msg("event worker stopped")
}

func (w *Worker) handle(ctx context.Context, t *asynq.Task) error {
	var event WorkflowEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		// a malformed payload will never decode, so skip retries
		return fmt.Errorf("decode workflow event: %v: %w", err, asynq.SkipRetry)
	}
	if w.handler == nil {
		return nil
	}
	return w.handler(ctx, &event)
}
