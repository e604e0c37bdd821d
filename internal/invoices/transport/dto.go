package transport

// EnsureInvoiceRequest is the body of POST /funnel/invoices/ensure.
type EnsureInvoiceRequest struct {
	ProposalID         string  `json:"quoteId" validate:"required,max=64"`
	ContactID          string  `json:"contactId" validate:"omitempty,max=64"`
	AmountExcludingTax float64 `json:"amountExcludingTax" validate:"min=0"`
	UserID             string  `json:"userId" validate:"omitempty,max=64"`
}

// ApproveRequest is the body of POST /funnel/quotes/approve.
type ApproveRequest struct {
	ProposalID  string  `json:"quoteId" validate:"required,max=64"`
	DealID      string  `json:"dealId" validate:"omitempty,max=64"`
	ContactID   string  `json:"contactId" validate:"omitempty,max=64"`
	PropertyID  string  `json:"propertyId" validate:"omitempty,max=64"`
	InvoiceID   string  `json:"invoiceId" validate:"omitempty,max=64"`
	TotalAmount float64 `json:"totalAmount" validate:"min=0"`
	UserID      string  `json:"userId" validate:"omitempty,max=64"`
}

// EnsureInvoiceInput identifies the proposal to invoice.
type EnsureInvoiceInput struct {
	ProposalID         string
	ContactID          string
	AmountExcludingTax float64
	UserID             string
}

// ApproveInput drives the approve-and-invoice composite.
type ApproveInput struct {
	ProposalID string
	DealID     string
	ContactID  string
	PropertyID string
	InvoiceID  string
	Total      float64
	UserID     string
}

// Invoice is the invoice shown on the invoice step.
type Invoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber,omitempty"`
	ContactID     string  `json:"contactId,omitempty"`
	ProposalID    string  `json:"quoteId,omitempty"`
	Status        string  `json:"status,omitempty"`
	Subtotal      float64 `json:"subtotal"`
	TotalTax      float64 `json:"totalTax"`
	Total         float64 `json:"total"`
	AmountPaid    float64 `json:"amountPaid"`
	AmountDue     float64 `json:"amountDue"`
	IssueDate     string  `json:"issueDate,omitempty"`
	DueDate       string  `json:"dueDate,omitempty"`
	InvoiceLink   string  `json:"invoiceLink,omitempty"`
	Created       bool    `json:"created"`
}

// ApproveResult reports the invoice the approval resolved to.
type ApproveResult struct {
	InvoiceID string  `json:"invoiceId"`
	Invoice   Invoice `json:"invoice"`
}
