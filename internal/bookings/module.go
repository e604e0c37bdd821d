// Package bookings provides the final step of the funnel: the booking for a
// paid invoice.
package bookings

import (
	"inspection_booking_backend/internal/bookings/handler"
	"inspection_booking_backend/internal/bookings/service"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Module represents the bookings domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new bookings module with all dependencies wired
func NewModule(store crm.Store, stages *deals.Coordinator, linkBuilder *links.Builder, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, stages, linkBuilder, log)
	svc.SetEventBus(bus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "bookings"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel.Group("/bookings"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
