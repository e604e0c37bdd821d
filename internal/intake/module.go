// Package intake provides the contact, property and phone verification steps
// that open a deal and lead to its first quote.
package intake

import (
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/intake/client"
	"inspection_booking_backend/internal/intake/handler"
	"inspection_booking_backend/internal/intake/service"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

// Config is what the intake module reads from configuration.
type Config interface {
	config.IntakeConfig
	config.VerifyConfig
}

// Module represents the intake domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new intake module with all dependencies wired
func NewModule(store crm.Store, stages *deals.Coordinator, proposals service.ProposalEnsurer, cfg Config, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(store, stages, client.New(cfg, log), proposals, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "intake"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
