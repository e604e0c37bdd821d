package handler

import (
	"net/http"

	"inspection_booking_backend/internal/payments/service"
	"inspection_booking_backend/internal/payments/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the funnel's payment step.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the payment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout", h.Checkout)
	rg.POST("/update-from-intent", h.UpdateFromIntent)
}

func (h *Handler) Checkout(c *gin.Context) {
	var req transport.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Checkout(c.Request.Context(), transport.CheckoutInput{
		InvoiceID:  req.InvoiceID,
		PaymentID:  req.PaymentID,
		ContactID:  req.ContactID,
		UserID:     req.UserID,
		DealID:     req.DealID,
		PropertyID: req.PropertyID,
		QuoteID:    req.QuoteID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateFromIntent(c *gin.Context) {
	var req transport.UpdateFromIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateFromIntent(c.Request.Context(), transport.UpdateFromIntentInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
