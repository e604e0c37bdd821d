package webhook

import (
	"inspection_booking_backend/internal/crm"
	apphttp "inspection_booking_backend/internal/http"
	payments "inspection_booking_backend/internal/payments/service"
	"inspection_booking_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler    *Handler
	reconciler *Reconciler
	secret     string
	log        *logger.Logger
}

// NewModule creates the webhook module. marker and queue may be nil.
func NewModule(store crm.Store, paymentsSvc *payments.Service, webhookSecret string, marker DeliveryMarker, queue Enqueuer, log *logger.Logger) *Module {
	reconciler := NewReconciler(store, paymentsSvc, log)
	return &Module{
		handler:    NewHandler(reconciler, marker, queue, log),
		reconciler: reconciler,
		secret:     webhookSecret,
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Reconciler returns the reconciler; the queue worker runs events through it.
func (m *Module) Reconciler() *Reconciler {
	return m.reconciler
}

// RegisterRoutes mounts the gateway endpoint. It sits outside the funnel
// rate limiter and never requires a bearer token.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/stripe", VerifyStripeSignature(m.secret, m.log), m.handler.HandleStripe)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
