package notification

import (
	"context"
	"errors"
	"testing"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/internal/email"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/platform/logger"
)

type sentMail struct {
	to      string
	receipt email.ReceiptData
	booking email.BookingData
}

type recordingSender struct {
	sent []sentMail
	err  error
}

func (s *recordingSender) SendPaymentReceipt(_ context.Context, to string, data email.ReceiptData) error {
	s.sent = append(s.sent, sentMail{to: to, receipt: data})
	return s.err
}

func (s *recordingSender) SendBookingConfirmation(_ context.Context, to string, data email.BookingData) error {
	s.sent = append(s.sent, sentMail{to: to, booking: data})
	return s.err
}

func setup() (*crmtest.Store, *recordingSender, *events.InMemoryBus) {
	log := logger.Nop()
	store := crmtest.New()
	sender := &recordingSender{}
	bus := events.NewInMemoryBus(log)
	New(store, sender, log).RegisterHandlers(bus)
	return store, sender, bus
}

func TestInvoicePaidSendsReceipt(t *testing.T) {
	store, sender, bus := setup()
	contactID := store.Seed(crm.Contacts, crm.Record{"email": "ada@example.com", "first_name": "Ada"})
	invoiceID := store.Seed(crm.Invoices, crm.Record{"invoice_id": "100001"})

	err := bus.PublishSync(context.Background(), events.InvoicePaid{
		BaseEvent:  events.NewBaseEvent(),
		InvoiceID:  invoiceID,
		ContactID:  contactID,
		AmountPaid: 550,
		ReceiptURL: "https://pay.example.com/r/1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "ada@example.com" || got.receipt.InvoiceNumber != "100001" || got.receipt.FirstName != "Ada" || got.receipt.AmountPaid != 550 {
		t.Fatalf("unexpected receipt %+v", got)
	}
}

func TestBookingCreatedSendsConfirmation(t *testing.T) {
	store, sender, bus := setup()
	contactID := store.Seed(crm.Contacts, crm.Record{"email": "ada@example.com"})

	err := bus.PublishSync(context.Background(), events.BookingCreated{
		BaseEvent:   events.NewBaseEvent(),
		BookingID:   "7",
		PublicID:    "100001",
		ContactID:   contactID,
		BookingLink: "https://book.example.com/steps/08-booking?bookingId=7",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].booking.BookingID != "100001" || sender.sent[0].booking.BookingLink == "" {
		t.Fatalf("unexpected confirmation %+v", sender.sent)
	}
}

func TestMissingRecipientSkipsEmail(t *testing.T) {
	store, sender, bus := setup()
	noEmail := store.Seed(crm.Contacts, crm.Record{"first_name": "Ada"})

	for _, contactID := range []string{"", noEmail, "404"} {
		if err := bus.PublishSync(context.Background(), events.BookingCreated{BaseEvent: events.NewBaseEvent(), BookingID: "1", ContactID: contactID}); err != nil {
			t.Fatalf("contact %q: unexpected error %v", contactID, err)
		}
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no email, got %+v", sender.sent)
	}
}

func TestSendFailureIsReported(t *testing.T) {
	store, sender, bus := setup()
	sender.err = errors.New("smtp down")
	contactID := store.Seed(crm.Contacts, crm.Record{"email": "ada@example.com"})

	err := bus.PublishSync(context.Background(), events.InvoicePaid{BaseEvent: events.NewBaseEvent(), InvoiceID: "9", ContactID: contactID})
	if err == nil {
		t.Fatalf("expected the send error to reach the bus")
	}
}
