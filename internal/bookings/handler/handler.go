package handler

import (
	"net/http"

	"inspection_booking_backend/internal/bookings/service"
	"inspection_booking_backend/internal/bookings/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the funnel's booking step.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new bookings handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the booking routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ensure", h.Ensure)
	rg.GET("/agents", h.ListAgents)
}

func (h *Handler) Ensure(c *gin.Context) {
	var req transport.EnsureBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	booking, err := h.svc.EnsureBooking(c.Request.Context(), transport.EnsureBookingInput(req))
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if booking.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, booking)
}

// ListAgents returns the agents linked to a property.
// GET /funnel/bookings/agents?propertyId=
func (h *Handler) ListAgents(c *gin.Context) {
	propertyID := c.Query("propertyId")
	if propertyID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "propertyId is required")
		return
	}
	agents, err := h.svc.ResolveAgentsForProperty(c.Request.Context(), propertyID)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "failed to load agents", nil)
		return
	}
	if agents == nil {
		agents = []string{}
	}
	httpkit.OK(c, gin.H{"items": agents})
}
