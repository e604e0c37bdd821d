// Package payments provides the payment step of the booking funnel.
package payments

import (
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/payments/handler"
	"inspection_booking_backend/internal/payments/service"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Module is the payments bounded context module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the payments service and handler.
func NewModule(store crm.Store, stages *deals.Coordinator, gw gateway.Gateway, linkBuilder *links.Builder, cfg config.PaymentConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, stages, gw, linkBuilder, cfg, log)
	svc.SetEventBus(bus)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "payments"
}

// Service returns the payments service; the webhook reconciler shares it.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel.Group("/payments"))
}

var _ apphttp.Module = (*Module)(nil)
