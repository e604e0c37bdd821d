package transport

// ── Requests ──────────────────────────────────────────────────────────────────

// StartDealRequest is the body of POST /funnel/contacts.
type StartDealRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"required,max=32,au_phone"`
	ServiceID string `json:"serviceId" validate:"required,max=64"`
	ContactID string `json:"contactId" validate:"omitempty,max=64"`
	DealID    string `json:"dealId" validate:"omitempty,max=64"`
	UserID    string `json:"userId" validate:"omitempty,max=64"`
}

// PropertyRequest is the body of POST /funnel/deals/:id/property.
type PropertyRequest struct {
	StreetAddress    string `json:"streetAddress" validate:"required,max=200"`
	UnitNumber       string `json:"unitNumber" validate:"omitempty,max=20"`
	Suburb           string `json:"suburb" validate:"required,max=100"`
	State            string `json:"state" validate:"required,au_state"`
	PostCode         string `json:"postCode" validate:"required,numeric,len=4"`
	PropertyCategory string `json:"propertyCategory" validate:"omitempty,oneof=residential commercial"`
	PropertyType     string `json:"propertyType" validate:"omitempty,max=50"`
	Bedrooms         int    `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms        int    `json:"bathrooms" validate:"min=0,max=50"`
	Levels           int    `json:"levels" validate:"min=0,max=20"`
	Basement         bool   `json:"basement"`
}

// SendCodeRequest is the body of POST /funnel/verification/send.
type SendCodeRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

// CheckCodeRequest is the body of POST /funnel/verification/check.
type CheckCodeRequest struct {
	Phone      string `json:"phone" validate:"required,max=32"`
	Code       string `json:"code" validate:"required,numeric,min=4,max=8"`
	ContactID  string `json:"contactId" validate:"omitempty,max=64"`
	DealID     string `json:"dealId" validate:"omitempty,max=64"`
	PropertyID string `json:"propertyId" validate:"omitempty,max=64"`
}

// ── Service inputs ────────────────────────────────────────────────────────────

// StartDealInput is the contact step of the funnel.
type StartDealInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ServiceID string
	ContactID string
	DealID    string
	UserID    string
}

// PropertyInput describes the property to inspect.
type PropertyInput = PropertyRequest

// CheckCodeInput carries the code and the funnel context to continue with.
type CheckCodeInput struct {
	Phone      string
	Code       string
	ContactID  string
	DealID     string
	PropertyID string
}

// ── Responses ─────────────────────────────────────────────────────────────────

// StartDealResult identifies the contact and deal the funnel continues with.
type StartDealResult struct {
	ContactID   string `json:"contactId"`
	DealID      string `json:"dealId"`
	Phone       string `json:"phone"`
	DealCreated bool   `json:"dealCreated"`
}

// PropertyResult identifies the deal's property.
type PropertyResult struct {
	PropertyID string `json:"propertyId"`
	DealID     string `json:"dealId"`
	Created    bool   `json:"created"`
}

// SendCodeResult reports a sent code. SandboxCode is only set in sandbox mode.
type SendCodeResult struct {
	Phone       string `json:"phone"`
	SandboxCode string `json:"sandboxCode,omitempty"`
}

// CheckCodeResult is where the funnel goes after verification.
type CheckCodeResult struct {
	Approved   bool   `json:"approved"`
	DealID     string `json:"dealId,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	QuoteID    string `json:"quoteId,omitempty"`
	QuoteLink  string `json:"quoteLink,omitempty"`
}
