package handler

import (
	"net/http"

	"inspection_booking_backend/internal/intake/service"
	"inspection_booking_backend/internal/intake/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the funnel steps before the quote.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new intake handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the intake routes on the funnel group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/contacts", h.StartDeal)
	rg.POST("/deals/:id/property", h.AttachProperty)
	rg.POST("/verification/send", h.SendCode)
	rg.POST("/verification/check", h.CheckCode)
}

func (h *Handler) StartDeal(c *gin.Context) {
	var req transport.StartDealRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.StartDeal(c.Request.Context(), transport.StartDealInput(req))
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.DealCreated {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, result)
}

func (h *Handler) AttachProperty(c *gin.Context) {
	var req transport.PropertyRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.AttachProperty(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, result)
}

func (h *Handler) SendCode(c *gin.Context) {
	var req transport.SendCodeRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.SendCode(c.Request.Context(), req.Phone)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) CheckCode(c *gin.Context) {
	var req transport.CheckCodeRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.CheckCode(c.Request.Context(), transport.CheckCodeInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}
