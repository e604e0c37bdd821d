// Package email delivers the funnel's customer emails.
package email

import "context"

// Sender sends the customer facing funnel emails.
type Sender interface {
	SendPaymentReceipt(ctx context.Context, toEmail string, data ReceiptData) error
	SendBookingConfirmation(ctx context.Context, toEmail string, data BookingData) error
}

// NoopSender drops every message. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendPaymentReceipt(context.Context, string, ReceiptData) error { return nil }

func (NoopSender) SendBookingConfirmation(context.Context, string, BookingData) error { return nil }
