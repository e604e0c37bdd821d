// Package services is the catalog of inspections (and their addons) a
// customer picks from on the first funnel step.
package services

import (
	"inspection_booking_backend/internal/crm"
	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/internal/services/handler"
	"inspection_booking_backend/internal/services/service"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(store crm.Store, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: handler.New(service.New(store, log), val)}
}

func (m *Module) Name() string { return "services" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Funnel.Group("/services"))
}

var _ apphttp.Module = (*Module)(nil)
