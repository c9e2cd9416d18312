package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
)

// Enqueuer pushes webhook delivery tasks onto the asynq queue. It implements
// events.Notifier, so every emitted domain event becomes a delivery task; the
// worker process drains the queue and performs the actual HTTP calls.
type Enqueuer struct {
	Client     *asynq.Client
	MaxRetry   int
	TaskExpiry time.Duration
	Logger     zerolog.Logger
}

// Notify enqueues the event for webhook delivery.
func (e Enqueuer) Notify(ctx context.Context, event events.Event) error {
	if e.Client == nil {
		return nil
	}
	task, err := NewWebhookTask(event)
	if err != nil {
		return err
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	opts := []asynq.Option{
		asynq.Queue(QueueWebhooks),
		asynq.MaxRetry(maxRetry),
	}
	if e.TaskExpiry > 0 {
		opts = append(opts, asynq.Retention(e.TaskExpiry))
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue webhook delivery: %w", err)
	}
	e.Logger.Debug().
		Str("task_id", info.ID).
		Str("topic", event.Topic).
		Msg("webhook delivery enqueued")
	return nil
}
