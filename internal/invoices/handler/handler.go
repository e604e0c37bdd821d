package handler

import (
	"net/http"

	"inspection_booking_backend/internal/invoices/service"
	"inspection_booking_backend/internal/invoices/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the funnel's invoice step.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new invoices handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts invoice routes on the funnel group.
func (h *Handler) RegisterRoutes(funnel *gin.RouterGroup) {
	funnel.POST("/quotes/approve", h.Approve)

	invoices := funnel.Group("/invoices")
	invoices.POST("/ensure", h.Ensure)
	invoices.GET("/:id", h.Get)
	invoices.POST("/:id/approve", h.MarkApproved)
}

func (h *Handler) Approve(c *gin.Context) {
	var req transport.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ApproveAndInvoice(c.Request.Context(), transport.ApproveInput{
		ProposalID: req.ProposalID,
		DealID:     req.DealID,
		ContactID:  req.ContactID,
		PropertyID: req.PropertyID,
		InvoiceID:  req.InvoiceID,
		Total:      req.TotalAmount,
		UserID:     req.UserID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Ensure(c *gin.Context) {
	var req transport.EnsureInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	invoice, err := h.svc.EnsureInvoice(c.Request.Context(), transport.EnsureInvoiceInput{
		ProposalID:         req.ProposalID,
		ContactID:          req.ContactID,
		AmountExcludingTax: req.AmountExcludingTax,
		UserID:             req.UserID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if invoice.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, invoice)
}

func (h *Handler) Get(c *gin.Context) {
	invoice, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, invoice)
}

func (h *Handler) MarkApproved(c *gin.Context) {
	if err := h.svc.MarkApproved(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"approved": true})
}
