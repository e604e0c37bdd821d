package transport

// CheckoutRequest starts or resumes payment of an invoice.
type CheckoutRequest struct {
	InvoiceID  string `json:"invoiceId" validate:"required"`
	PaymentID  string `json:"paymentId,omitempty"`
	ContactID  string `json:"contactId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	DealID     string `json:"dealId,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	QuoteID    string `json:"quoteId,omitempty"`
}

// UpdateFromIntentRequest is the browser's report after confirming a payment.
type UpdateFromIntentRequest struct {
	InvoiceID       string `json:"invoiceId,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	PaymentID       string `json:"paymentId,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
	DeclineCode     string `json:"declineCode,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty" validate:"omitempty,max=500"`
}

// EnsurePaymentInput identifies the invoice and flow context of a payment.
type EnsurePaymentInput struct {
	InvoiceID  string
	ContactID  string
	Amount     float64
	UserID     string
	DealID     string
	PropertyID string
	QuoteID    string
	PaymentID  string
}

// CheckoutInput is the service-level checkout request.
type CheckoutInput struct {
	InvoiceID  string
	PaymentID  string
	ContactID  string
	UserID     string
	DealID     string
	PropertyID string
	QuoteID    string
}

// IntentRequest describes a gateway intent in major units.
type IntentRequest struct {
	InvoiceID string
	PaymentID string
	Amount    float64
	Currency  string
	Metadata  map[string]string
}

// IntentResult is what the browser needs to confirm a payment.
type IntentResult struct {
	IntentID     string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}

// UpdateFromIntentInput is the service-level post-confirmation report.
type UpdateFromIntentInput struct {
	InvoiceID       string
	PaymentIntentID string
	ClientSecret    string
	PaymentID       string
	ErrorCode       string
	DeclineCode     string
	ErrorMessage    string
}

// Payment is the funnel view of a payment row.
type Payment struct {
	ID              string  `json:"id"`
	PaymentNumber   string  `json:"paymentId,omitempty"`
	InvoiceID       string  `json:"invoiceId,omitempty"`
	ContactID       string  `json:"contactId,omitempty"`
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
	FailureReason   string  `json:"failureReason,omitempty"`
	StripePaymentID string  `json:"stripePaymentId,omitempty"`
	ReceiptURL      string  `json:"receiptUrl,omitempty"`
	PaymentLink     string  `json:"paymentLink,omitempty"`
	Created         bool    `json:"created"`
}

// CheckoutResult is returned to the payment page.
type CheckoutResult struct {
	IntentResult
	PaymentRecordID string  `json:"paymentRecordId"`
	PaymentNumber   string  `json:"paymentId"`
	InvoiceID       string  `json:"invoiceId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	ReceiptLink     string  `json:"receiptLink"`
}

// UpdateResult reports whether a payment row was patched.
type UpdateResult struct {
	Updated         bool   `json:"updated"`
	Reason          string `json:"reason,omitempty"`
	PaymentRecordID string `json:"paymentRecordId,omitempty"`
	Status          string `json:"status,omitempty"`
	FailureReason   string `json:"failureReason,omitempty"`
}
