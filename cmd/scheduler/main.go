package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/email"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/notification"
	"inspection_booking_backend/internal/payments"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/scheduler"
	"inspection_booking_backend/internal/webhook"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL not configured; nothing to consume")
		panic("REDIS_URL is required for the scheduler")
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	store := crm.NewClient(cfg, log)
	stages := deals.NewCoordinator(store, cfg, eventBus, log)
	paymentsModule := payments.NewModule(
		store,
		stages,
		gateway.NewStripe(cfg.GetStripeSecretKey(), log),
		links.NewBuilder(cfg),
		cfg,
		eventBus,
		validator.New(),
		log,
	)

	notificationModule := notification.New(store, email.NewSender(cfg), log)
	notificationModule.RegisterHandlers(eventBus)

	reconciler := webhook.NewReconciler(store, paymentsModule.Service(), log)
	worker, err := scheduler.NewWorker(cfg, reconciler, webhook.NewRedisMarker(rdb, 0), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
