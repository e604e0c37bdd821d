// Package quotes provides the proposal (quote) step of the booking funnel.
package quotes

import (
	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/quotes/handler"
	"inspection_booking_backend/internal/quotes/service"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Deps are the collaborators the quotes module is built from.
type Deps struct {
	Store     crm.Store
	Stages    *deals.Coordinator
	Estimator service.Estimator
	TaxRates  *billing.TaxRates
	Links     *links.Builder
	Config    config.ProposalConfig
	EventBus  events.Bus
	Validator *validator.Validator
	Logger    *logger.Logger
}

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(d Deps) *Module {
	svc := service.New(d.Store, d.Stages, d.Estimator, d.TaxRates, d.Links, d.Config, d.Logger)
	svc.SetEventBus(d.EventBus)

	return &Module{
		handler: handler.New(svc, d.Validator),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
