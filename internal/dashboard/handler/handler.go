package handler

import (
	"net/http"

	"inspection_booking_backend/internal/dashboard/service"
	"inspection_booking_backend/internal/dashboard/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgUnauthorized     = "unauthorized"
)

// Handler serves the dashboard listings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new dashboard handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers one GET route per resource
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	for _, name := range service.Resources() {
		rg.GET("/"+name, h.list(name))
	}
}

func (h *Handler) list(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := httpkit.GetIdentity(c)
		if !viewer.IsAuthenticated() {
			httpkit.Error(c, http.StatusUnauthorized, msgUnauthorized, nil)
			return
		}

		var req transport.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}

		result, err := h.svc.List(c.Request.Context(), name, transport.ListInput{
			Limit:  req.Limit,
			Page:   req.Page,
			Viewer: viewer.UserID(),
		})
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}
