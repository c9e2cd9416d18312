package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-pos/internal/events"
)

// TaskTypeWebhookDelivery identifies webhook delivery tasks on the queue.
const TaskTypeWebhookDelivery = "webhook:deliver"

// QueueWebhooks is the asynq queue webhook deliveries run on.
const QueueWebhooks = "webhooks"

// webhookTask is the serialized task payload carried through Redis.
type webhookTask struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewWebhookTask packages a domain event into an asynq task.
func NewWebhookTask(event events.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(webhookTask{
		EventID:     event.ID.String(),
		Topic:       event.Topic,
		AggregateID: event.AggregateID.String(),
		Data:        event.Payload,
		OccurredAt:  event.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode webhook task: %w", err)
	}
	return asynq.NewTask(TaskTypeWebhookDelivery, payload), nil
}
