package scheduler

import (
	"context"
	"fmt"
	"time"

	"inspection_booking_backend/internal/webhook"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Reconciler applies one gateway event to local state.
type Reconciler interface {
	Handle(ctx context.Context, ev webhook.Event) error
}

const maxRetryDelay = 10 * time.Minute

// Worker consumes reconciliation tasks.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	reconciler Reconciler
	marker     webhook.DeliveryMarker
	log        *logger.Logger
}

// NewWorker builds the queue consumer. marker may be nil.
func NewWorker(cfg config.SchedulerConfig, reconciler Reconciler, marker webhook.DeliveryMarker, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{queue: 1},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried >= maxRetry {
				log.Error("webhook task exhausted retries", "task", task.Type(), "error", err)
			}
		}),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		reconciler: reconciler,
		marker:     marker,
		log:        log,
	}

	mux.HandleFunc(TaskWebhookReconcile, w.handleWebhookReconcile)

	return w, nil
}

// retryDelay doubles from 5s per attempt up to maxRetryDelay, so a CRM outage
// is ridden out without hammering it.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	d := 5 * time.Second
	for i := 0; i < n && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleWebhookReconcile returns the reconciler's error so asynq retries the
// task with backoff.
func (w *Worker) handleWebhookReconcile(ctx context.Context, task *asynq.Task) error {
	ev, err := ParseWebhookReconcilePayload(task)
	if err != nil {
		return fmt.Errorf("decode webhook task: %w: %w", err, asynq.SkipRetry)
	}
	ctx = context.WithValue(ctx, logger.EventIDKey, ev.ID)

	if err := w.reconciler.Handle(ctx, ev); err != nil {
		w.log.WithContext(ctx).UpstreamError("reconciler", ev.Type, err)
		return err
	}
	if w.marker != nil {
		if err := w.marker.Mark(ctx, ev.ID); err != nil {
			w.log.WithContext(ctx).SideEffectFailed("mark webhook delivered", err, "eventId", ev.ID)
		}
	}
	return nil
}
