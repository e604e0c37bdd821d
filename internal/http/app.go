// Package http is the composition seam between cmd/api and the funnel
// modules: the Module contract, the route groups handed to it, and the
// dependencies the router needs.
package http

import (
	"context"

	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// App is assembled by main and consumed by router.New. A nil Health always
// reports ok.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
