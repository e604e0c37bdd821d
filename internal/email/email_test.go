package email

import (
	"strings"
	"testing"

	"inspection_booking_backend/platform/config"
)

func TestReceiptTemplate(t *testing.T) {
	body, err := renderEmailTemplate("receipt", ReceiptData{
		FirstName:     "Ada",
		InvoiceNumber: "100001",
		AmountPaid:    550,
		ReceiptURL:    "https://pay.example.com/r/1",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Hi Ada,", "$550.00", "invoice 100001", "https://pay.example.com/r/1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestBookingTemplateWithoutName(t *testing.T) {
	body, err := renderEmailTemplate("booking", BookingData{BookingID: "100001"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(body, "Hi,") || strings.Contains(body, "Choose your inspection time") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}

func TestFormatCurrencyAUD(t *testing.T) {
	cases := map[float64]string{0: "$0.00", 12.5: "$12.50", 1234.567: "$1234.57"}
	for in, want := range cases {
		if got := formatCurrencyAUD(in); got != want {
			t.Fatalf("formatCurrencyAUD(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestNewSenderWithoutSMTPIsNoop(t *testing.T) {
	if _, ok := NewSender(&config.Config{}).(NoopSender); !ok {
		t.Fatalf("expected NoopSender when SMTP is not configured")
	}
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, EmailFromAddress: "bookings@example.com"}
	if _, ok := NewSender(cfg).(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender when SMTP is configured")
	}
}

func TestNewMessageRejectsBadRecipient(t *testing.T) {
	s := NewSMTPSender(&config.Config{EmailFromName: "Inspections", EmailFromAddress: "bookings@example.com"})
	if _, err := s.newMessage("not-an-address", "subject", "body"); err == nil {
		t.Fatalf("expected an error for an invalid recipient")
	}
	if _, err := s.newMessage("ada@example.com", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
