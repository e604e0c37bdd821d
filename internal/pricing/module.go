// Package pricing provides the rate engine bounded context module.
package pricing

import (
	"inspection_booking_backend/internal/pricing/client"
	"inspection_booking_backend/internal/pricing/service"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

// Module wires the rate engine client and service.
type Module struct {
	service *service.Service
}

// NewModule creates the pricing module.
func NewModule(cfg config.PricingConfig, log *logger.Logger) *Module {
	apiClient := client.New(cfg, log)
	return &Module{service: service.New(apiClient, cfg.GetPricingCacheTTL(), log)}
}

// Service returns the pricing service.
func (m *Module) Service() *service.Service {
	return m.service
}
