package transport

// EnsureBookingRequest is the body of POST /funnel/bookings/ensure.
type EnsureBookingRequest struct {
	InvoiceID  string `json:"invoiceId" validate:"required,max=64"`
	PropertyID string `json:"propertyId" validate:"omitempty,max=64"`
	UserID     string `json:"userId" validate:"omitempty,max=64"`
	ContactID  string `json:"contactId" validate:"omitempty,max=64"`
	DealID     string `json:"dealId" validate:"omitempty,max=64"`
	QuoteID    string `json:"quoteId" validate:"omitempty,max=64"`
}

// EnsureBookingInput identifies the paid invoice to book. Blank ids are
// resolved from the invoice's proposal and deal.
type EnsureBookingInput struct {
	InvoiceID  string
	PropertyID string
	UserID     string
	ContactID  string
	DealID     string
	QuoteID    string
}

// Booking is the confirmed inspection booking.
type Booking struct {
	ID          string   `json:"id"`
	PublicID    string   `json:"bookingId"`
	Status      string   `json:"status,omitempty"`
	Contacts    []string `json:"contacts,omitempty"`
	BookingLink string   `json:"bookingLink,omitempty"`
	Created     bool     `json:"created"`
}
