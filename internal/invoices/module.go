// Package invoices provides the invoice step of the booking funnel.
package invoices

import (
	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/invoices/handler"
	"inspection_booking_backend/internal/invoices/service"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Module is the invoices bounded context module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the invoices service and handler.
func NewModule(store crm.Store, stages *deals.Coordinator, taxRates *billing.TaxRates, linkBuilder *links.Builder, cfg config.InvoiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, stages, taxRates, linkBuilder, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "invoices"
}

// Service returns the invoices service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel)
}

var _ apphttp.Module = (*Module)(nil)
