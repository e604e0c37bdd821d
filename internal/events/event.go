// Package events defines the funnel's domain events. The bus itself lives
// in platform/events.
package events

import (
	"inspection_booking_backend/platform/events"
	"inspection_booking_backend/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus returns the single-process bus used by both binaries.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// ProposalCreated is published when a new proposal is created for a deal.
type ProposalCreated struct {
	BaseEvent
	ProposalID string  `json:"proposalId"`
	DealID     string  `json:"dealId"`
	ContactID  string  `json:"contactId"`
	Amount     float64 `json:"amount"`
}

func (e ProposalCreated) EventName() string { return "quotes.proposal.created" }

// DealStageChanged is published after a deal's stage was patched.
type DealStageChanged struct {
	BaseEvent
	DealID    string `json:"dealId"`
	Milestone string `json:"milestone"`
	StageID   string `json:"stageId"`
}

func (e DealStageChanged) EventName() string { return "deals.stage.changed" }

// PaymentFailed is published when a checkout attempt reports a failure status.
type PaymentFailed struct {
	BaseEvent
	InvoiceID string `json:"invoiceId"`
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

func (e PaymentFailed) EventName() string { return "payments.failed" }

// InvoicePaid is published once reconciliation marks an invoice paid.
type InvoicePaid struct {
	BaseEvent
	InvoiceID  string  `json:"invoiceId"`
	PaymentID  string  `json:"paymentId"`
	ContactID  string  `json:"contactId"`
	AmountPaid float64 `json:"amountPaid"`
	ReceiptURL string  `json:"receiptUrl,omitempty"`
}

func (e InvoicePaid) EventName() string { return "invoices.paid" }

// BookingCreated is published when a booking record is first created.
type BookingCreated struct {
	BaseEvent
	BookingID   string `json:"bookingId"`
	PublicID    string `json:"publicId"`
	InvoiceID   string `json:"invoiceId"`
	ContactID   string `json:"contactId"`
	BookingLink string `json:"bookingLink,omitempty"`
}

func (e BookingCreated) EventName() string { return "bookings.created" }
