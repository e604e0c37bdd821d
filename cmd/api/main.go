package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/bookings"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/dashboard"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/email"
	"inspection_booking_backend/internal/events"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/http/router"
	"inspection_booking_backend/internal/intake"
	"inspection_booking_backend/internal/invoices"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/notification"
	"inspection_booking_backend/internal/payments"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/pricing"
	"inspection_booking_backend/internal/quotes"
	"inspection_booking_backend/internal/scheduler"
	"inspection_booking_backend/internal/services"
	"inspection_booking_backend/internal/webhook"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Shared collaborators
	// ========================================================================

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	store := crm.NewClient(cfg, log)
	stages := deals.NewCoordinator(store, cfg, eventBus, log)
	linkBuilder := links.NewBuilder(cfg)
	taxRates := billing.NewTaxRates(store, cfg.GetDefaultTaxRate(), log)
	pricingModule := pricing.NewModule(cfg, log)

	if cfg.GetStripeSecretKey() == "" {
		log.Warn("STRIPE_SECRET_KEY not configured; checkout will fail")
	}
	paymentGateway := gateway.NewStripe(cfg.GetStripeSecretKey(), log)

	rdb, health := initRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	marker, queue, closeQueue := initWebhookDelivery(cfg, rdb, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain modules
	// ========================================================================

	quotesModule := quotes.NewModule(quotes.Deps{
		Store:     store,
		Stages:    stages,
		Estimator: pricingModule.Service(),
		TaxRates:  taxRates,
		Links:     linkBuilder,
		Config:    cfg,
		EventBus:  eventBus,
		Validator: val,
		Logger:    log,
	})
	invoicesModule := invoices.NewModule(store, stages, taxRates, linkBuilder, cfg, val, log)
	paymentsModule := payments.NewModule(store, stages, paymentGateway, linkBuilder, cfg, eventBus, val, log)
	webhookModule := webhook.NewModule(store, paymentsModule.Service(), cfg.GetStripeWebhookSecret(), marker, queue, log)
	bookingsModule := bookings.NewModule(store, stages, linkBuilder, eventBus, val, log)
	intakeModule := intake.NewModule(store, stages, quotesModule.Service(), cfg, val, log)
	dashboardModule := dashboard.NewModule(store, val, log)
	servicesModule := services.NewModule(store, val, log)

	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP not configured; customer emails disabled")
	}
	notificationModule := notification.New(store, email.NewSender(cfg), log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Modules: []apphttp.Module{
			servicesModule,
			intakeModule,
			quotesModule,
			invoicesModule,
			paymentsModule,
			bookingsModule,
			webhookModule,
			dashboardModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis connects to REDIS_URL when configured. Redis backs the webhook
// delivery markers and the reconciliation queue; the API runs without it.
func initRedis(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) (*redis.Client, apphttp.HealthChecker) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; webhook delivery markers disabled")
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable at startup", "error", err)
	}
	return rdb, apphttp.HealthCheckFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}

// initWebhookDelivery returns the delivery marker and, when WEBHOOK_ASYNC is
// set, the reconciliation queue. Either may be nil.
func initWebhookDelivery(cfg config.SchedulerConfig, rdb *redis.Client, log *logger.Logger) (webhook.DeliveryMarker, webhook.Enqueuer, func()) {
	var marker webhook.DeliveryMarker
	if rdb != nil {
		marker = webhook.NewRedisMarker(rdb, 0)
	}
	if !cfg.GetWebhookAsync() {
		return marker, nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize webhook queue; reconciling inline", "error", err)
		return marker, nil, nil
	}
	log.Info("webhook reconciliation queued", "queue", cfg.GetAsynqQueueName())
	return marker, client, func() { _ = client.Close() }
}
