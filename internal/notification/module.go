// Package notification sends customer emails in response to funnel events.
// Domain modules publish events and never talk to the mail provider.
package notification

import (
	"context"
	"errors"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/email"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/platform/logger"
)

// Module subscribes to funnel events and emails the contact.
type Module struct {
	store  crm.Store
	sender email.Sender
	log    *logger.Logger
}

// New creates the notification module.
func New(store crm.Store, sender email.Sender, log *logger.Logger) *Module {
	return &Module{store: store, sender: sender, log: log}
}

// Name returns the module name for logging
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the events that produce customer email.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InvoicePaid{}.EventName(), m)
	bus.Subscribe(events.BookingCreated{}.EventName(), m)
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InvoicePaid:
		return m.handleInvoicePaid(ctx, e)
	case events.BookingCreated:
		return m.handleBookingCreated(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleInvoicePaid(ctx context.Context, e events.InvoicePaid) error {
	to, firstName, ok := m.recipient(ctx, e.ContactID)
	if !ok {
		return nil
	}
	number := e.InvoiceID
	if inv, found, err := crm.GetOptional(ctx, m.store, crm.Invoices, e.InvoiceID, "id", "invoice_id"); err == nil && found {
		if n := inv.String("invoice_id"); n != "" {
			number = n
		}
	}

	err := m.sender.SendPaymentReceipt(ctx, to, email.ReceiptData{
		FirstName:     firstName,
		InvoiceNumber: number,
		AmountPaid:    e.AmountPaid,
		ReceiptURL:    e.ReceiptURL,
	})
	if err != nil {
		m.log.WithContext(ctx).SideEffectFailed("send payment receipt", err, "invoiceId", e.InvoiceID, "contactId", e.ContactID)
		return err
	}
	m.log.WithContext(ctx).Info("payment receipt sent", "invoiceId", e.InvoiceID)
	return nil
}

func (m *Module) handleBookingCreated(ctx context.Context, e events.BookingCreated) error {
	to, firstName, ok := m.recipient(ctx, e.ContactID)
	if !ok {
		return nil
	}
	bookingID := e.PublicID
	if bookingID == "" {
		bookingID = e.BookingID
	}

	err := m.sender.SendBookingConfirmation(ctx, to, email.BookingData{
		FirstName:   firstName,
		BookingID:   bookingID,
		BookingLink: e.BookingLink,
	})
	if err != nil {
		m.log.WithContext(ctx).SideEffectFailed("send booking confirmation", err, "bookingId", e.BookingID, "contactId", e.ContactID)
		return err
	}
	m.log.WithContext(ctx).Info("booking confirmation sent", "bookingId", e.BookingID)
	return nil
}

// recipient loads the contact's email. A missing contact or address skips
// the message.
func (m *Module) recipient(ctx context.Context, contactID string) (string, string, bool) {
	if contactID == "" {
		return "", "", false
	}
	contact, err := m.store.Get(ctx, crm.Contacts, contactID, "id", "email", "first_name")
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.log.WithContext(ctx).SideEffectFailed("load notification contact", err, "contactId", contactID)
		}
		return "", "", false
	}
	to := contact.String("email")
	if to == "" {
		return "", "", false
	}
	return to, contact.String("first_name"), true
}
