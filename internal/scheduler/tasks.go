package scheduler

import (
	"encoding/json"

	"inspection_booking_backend/internal/webhook"

	"github.com/hibiken/asynq"
)

const TaskWebhookReconcile = "webhooks.reconcile"

// NewWebhookReconcileTask wraps a verified gateway event.
func NewWebhookReconcileTask(ev webhook.Event) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookReconcile, data), nil
}

func ParseWebhookReconcilePayload(task *asynq.Task) (webhook.Event, error) {
	var ev webhook.Event
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return webhook.Event{}, err
	}
	return ev, nil
}

// webhookTaskID keys the task by gateway event id so redelivered events
// collapse onto the task already queued.
func webhookTaskID(eventID string) string {
	return "webhook:" + eventID
}
