package http

import "github.com/gin-gonic/gin"

// Module is one funnel area that owns its routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands each module the groups it may mount on.
type RouterContext struct {
	// Funnel is /api/v1/funnel: public and rate limited per IP.
	Funnel *gin.RouterGroup
	// Dashboard is /api/v1/dashboard: bearer token required.
	Dashboard *gin.RouterGroup
	// Webhooks is /api/v1/webhooks: no auth, callers prove themselves by
	// signature.
	Webhooks *gin.RouterGroup
}
