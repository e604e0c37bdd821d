package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/webhook"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type fakeReconciler struct {
	got []webhook.Event
	err error
}

func (f *fakeReconciler) Handle(_ context.Context, ev webhook.Event) error {
	f.got = append(f.got, ev)
	return f.err
}

type fakeMarker struct{ marked []string }

func (m *fakeMarker) Seen(context.Context, string) (bool, error) { return false, nil }

func (m *fakeMarker) Mark(_ context.Context, id string) error {
	m.marked = append(m.marked, id)
	return nil
}

func TestWebhookTaskRoundTripsEvent(t *testing.T) {
	ev := webhook.Event{
		ID:       "evt_1",
		Type:     webhook.KindIntentSucceeded,
		IntentID: "pi_1",
		Intent:   &gateway.Intent{ID: "pi_1", Status: "succeeded", Amount: 55000},
	}
	task, err := NewWebhookReconcileTask(ev)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskWebhookReconcile {
		t.Fatalf("unexpected task type %q", task.Type())
	}
	got, err := ParseWebhookReconcilePayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ID != ev.ID || got.Intent == nil || got.Intent.Amount != 55000 {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestWorkerReconcilesAndMarks(t *testing.T) {
	rec := &fakeReconciler{}
	marker := &fakeMarker{}
	w := &Worker{reconciler: rec, marker: marker, log: logger.Nop()}

	task, _ := NewWebhookReconcileTask(webhook.Event{ID: "evt_2", Type: webhook.KindChargeSucceeded})
	if err := w.handleWebhookReconcile(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].ID != "evt_2" {
		t.Fatalf("expected event reconciled, got %+v", rec.got)
	}
	if len(marker.marked) != 1 || marker.marked[0] != "evt_2" {
		t.Fatalf("expected event marked, got %v", marker.marked)
	}
}

func TestWorkerFailureIsRetriedAndUnmarked(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("crm down")}
	marker := &fakeMarker{}
	w := &Worker{reconciler: rec, marker: marker, log: logger.Nop()}

	task, _ := NewWebhookReconcileTask(webhook.Event{ID: "evt_3"})
	err := w.handleWebhookReconcile(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
	if len(marker.marked) != 0 {
		t.Fatalf("failed events must not be marked")
	}
}

func TestWorkerSkipsRetryForBadPayload(t *testing.T) {
	w := &Worker{reconciler: &fakeReconciler{}, log: logger.Nop()}
	err := w.handleWebhookReconcile(context.Background(), asynq.NewTask(TaskWebhookReconcile, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestIgnoreDuplicate(t *testing.T) {
	if err := ignoreDuplicate(fmt.Errorf("enqueue: %w", asynq.ErrTaskIDConflict)); err != nil {
		t.Fatalf("expected duplicate task id to count as success, got %v", err)
	}
	boom := errors.New("redis down")
	if err := ignoreDuplicate(boom); !errors.Is(err, boom) {
		t.Fatalf("expected other errors to pass through, got %v", err)
	}
	if ignoreDuplicate(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestNewClientNeedsRedis(t *testing.T) {
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Fatalf("expected an error without REDIS_URL")
	}
	c, err := NewClient(&config.Config{RedisURL: "redis://localhost:6379/0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.queue != "default" {
		t.Fatalf("expected default queue, got %q", c.queue)
	}
	_ = c.Close()
}

func TestRetryDelayBacksOffToCap(t *testing.T) {
	if got := retryDelay(0, nil, nil); got != 5*time.Second {
		t.Fatalf("expected 5s first delay, got %v", got)
	}
	if got := retryDelay(2, nil, nil); got != 20*time.Second {
		t.Fatalf("expected 20s third delay, got %v", got)
	}
	if got := retryDelay(30, nil, nil); got != maxRetryDelay {
		t.Fatalf("expected cap, got %v", got)
	}
}
