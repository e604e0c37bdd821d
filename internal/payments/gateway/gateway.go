// Package gateway defines the payment gateway contract and its Stripe
// implementation. Workflow code only sees the types in this file.
package gateway

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no gateway secret key is set.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Intent statuses reported by the gateway.
const (
	StatusSucceeded             = "succeeded"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusProcessing            = "processing"
	StatusRequiresCapture       = "requires_capture"
	StatusCanceled              = "canceled"
)

// PaymentError is the gateway's last payment error on an intent.
type PaymentError struct {
	Code        string `json:"code,omitempty"`
	DeclineCode string `json:"declineCode,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Intent is a payment intent. Amounts are in minor units.
type Intent struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	ClientSecret       string            `json:"-"`
	Currency           string            `json:"currency,omitempty"`
	Amount             int64             `json:"amount"`
	AmountReceived     int64             `json:"amountReceived"`
	AmountCapturable   int64             `json:"amountCapturable"`
	Created            int64             `json:"created"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	LastError          *PaymentError     `json:"lastError,omitempty"`
	PaymentMethodTypes []string          `json:"paymentMethodTypes,omitempty"`
	LatestChargeID     string            `json:"latestChargeId,omitempty"`
}

// Collected returns the amount received, falling back to the intended amount.
func (i Intent) Collected() int64 {
	if i.AmountReceived > 0 {
		return i.AmountReceived
	}
	return i.Amount
}

// Charge carries the receipt and card details of a charge.
type Charge struct {
	ID         string `json:"id"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
	MethodType string `json:"methodType,omitempty"`
	CardBrand  string `json:"cardBrand,omitempty"`
	CardLast4  string `json:"cardLast4,omitempty"`
	ExpMonth   int64  `json:"expMonth,omitempty"`
	ExpYear    int64  `json:"expYear,omitempty"`
	Created    int64  `json:"created"`
}

// IntentParams describe a new intent.
type IntentParams struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Gateway is the payment gateway contract.
type Gateway interface {
	CreateIntent(ctx context.Context, params IntentParams) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	// LatestCharge returns the newest charge of the intent, or nil when the
	// intent has none.
	LatestCharge(ctx context.Context, intentID string) (*Charge, error)
}
