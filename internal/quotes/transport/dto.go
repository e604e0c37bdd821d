package transport

// ── Requests ──────────────────────────────────────────────────────────────────

// EnsureProposalRequest is the body of POST /funnel/quotes/ensure. Any subset of
// the identifiers may be present; the proposal is resolved from the most
// specific one available.
type EnsureProposalRequest struct {
	ProposalID string `json:"quoteId" validate:"omitempty,max=64"`
	DealID     string `json:"dealId" validate:"omitempty,max=64"`
	ContactID  string `json:"contactId" validate:"omitempty,max=64"`
	PropertyID string `json:"propertyId" validate:"omitempty,max=64"`
	UserID     string `json:"userId" validate:"omitempty,max=64"`
}

// UpdateTotalRequest is the body of PATCH /funnel/quotes/:id/total.
type UpdateTotalRequest struct {
	Base     float64  `json:"base" validate:"min=0"`
	AddonIDs []string `json:"addons" validate:"omitempty,max=50,dive,required"`
}

// ── Service inputs ────────────────────────────────────────────────────────────

// EnsureProposalInput identifies the proposal to reuse or create.
type EnsureProposalInput struct {
	ProposalID string
	DealID     string
	ContactID  string
	PropertyID string
	UserID     string
}

// UpdateTotalInput carries the base price and the selected addons. A zero
// base means the proposal's original inspection amount.
type UpdateTotalInput struct {
	Base     float64
	AddonIDs []string
}

// ── Responses ─────────────────────────────────────────────────────────────────

// Proposal is the quote shown to the customer.
type Proposal struct {
	ID               string  `json:"id"`
	QuoteID          string  `json:"quoteId,omitempty"`
	DealID           string  `json:"dealId"`
	ContactID        string  `json:"contactId,omitempty"`
	Status           string  `json:"status,omitempty"`
	QuoteAmount      float64 `json:"quoteAmount"`
	InspectionAmount float64 `json:"inspectionAmount"`
	Note             string  `json:"note,omitempty"`
	ExpirationDate   string  `json:"expirationDate,omitempty"`
	QuoteLink        string  `json:"quoteLink,omitempty"`
	Created          bool    `json:"created"`
}

// Addon is an optional extra offered by the deal's service.
type Addon struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Selected bool    `json:"selected"`
}

// TotalBreakdown is the recomputed proposal total.
type TotalBreakdown struct {
	Base        float64 `json:"base"`
	AddonsTotal float64 `json:"addonsTotal"`
	Subtotal    float64 `json:"subtotal"`
	TaxRate     float64 `json:"taxRate"`
	TotalTax    float64 `json:"totalTax"`
	Total       float64 `json:"total"`
}
