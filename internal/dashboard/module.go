// Package dashboard provides the authenticated read-only view of the funnel.
package dashboard

import (
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/dashboard/handler"
	"inspection_booking_backend/internal/dashboard/service"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Module represents the dashboard module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new dashboard module
func NewModule(store crm.Store, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "dashboard"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes on the JWT protected group
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Dashboard)
}

var _ apphttp.Module = (*Module)(nil)
