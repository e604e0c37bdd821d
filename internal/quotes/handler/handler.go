package handler

import (
	"net/http"

	"inspection_booking_backend/internal/quotes/service"
	"inspection_booking_backend/internal/quotes/transport"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles the funnel's quote step.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the quote routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ensure", h.Ensure)
	rg.GET("/:id/addons", h.ListAddons)
	rg.PATCH("/:id/total", h.UpdateTotal)
}

func (h *Handler) Ensure(c *gin.Context) {
	var req transport.EnsureProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	proposal, err := h.svc.EnsureProposal(c.Request.Context(), transport.EnsureProposalInput{
		ProposalID: req.ProposalID,
		DealID:     req.DealID,
		ContactID:  req.ContactID,
		PropertyID: req.PropertyID,
		UserID:     req.UserID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if proposal.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, proposal)
}

func (h *Handler) ListAddons(c *gin.Context) {
	addons, err := h.svc.Addons(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": addons})
}

func (h *Handler) UpdateTotal(c *gin.Context) {
	var req transport.UpdateTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	totals, err := h.svc.UpdateTotal(c.Request.Context(), c.Param("id"), transport.UpdateTotalInput{
		Base:     req.Base,
		AddonIDs: req.AddonIDs,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, totals)
}
