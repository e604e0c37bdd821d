// Package links builds the durable flow URLs patched onto CRM records. Every
// link carries the same ordered parameter set so any page can resume the flow
// from a cold start.
package links

import (
	"net/url"
	"strings"

	"inspection_booking_backend/platform/config"
)

// Step is a page of the customer flow.
type Step string

const (
	StepQuote   Step = "/steps/04-quote"
	StepInvoice Step = "/steps/05-invoice"
	StepPayment Step = "/steps/06-payment"
	StepReceipt Step = "/steps/07-receipt"
	StepBooking Step = "/steps/08-booking"
)

const defaultBaseURL = "http://localhost:8030"

// Params are the flow identifiers. Blank values are omitted.
type Params struct {
	UserID     string
	ContactID  string
	DealID     string
	PropertyID string
	QuoteID    string
	InvoiceID  string
	PaymentID  string
	BookingID  string
}

// Builder renders links against the public app base URL.
type Builder struct {
	base string
}

// NewBuilder creates a Builder from configuration.
func NewBuilder(cfg config.LinkConfig) *Builder {
	return &Builder{base: normalizeBase(cfg.GetAppBaseURL())}
}

// Build renders the link for step with params in their fixed order.
func (b *Builder) Build(step Step, p Params) string {
	pairs := [...][2]string{
		{"userId", p.UserID},
		{"contactId", p.ContactID},
		{"dealId", p.DealID},
		{"propertyId", p.PropertyID},
		{"quoteId", p.QuoteID},
		{"invoiceId", p.InvoiceID},
		{"paymentId", p.PaymentID},
		{"bookingId", p.BookingID},
	}

	// url.Values sorts keys, so the query is assembled by hand to keep order.
	var query strings.Builder
	for _, pair := range pairs {
		value := strings.TrimSpace(pair[1])
		if value == "" {
			continue
		}
		if query.Len() > 0 {
			query.WriteByte('&')
		}
		query.WriteString(pair[0])
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(value))
	}

	link := b.base + string(step)
	if query.Len() > 0 {
		link += "?" + query.String()
	}
	return link
}

func normalizeBase(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return defaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	// Operators sometimes point APP_BASE_URL at the CRM admin UI.
	if idx := strings.Index(base, "/admin"); idx >= 0 {
		base = base[:idx]
	}
	return base
}
