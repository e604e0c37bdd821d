package webhook

import (
	"encoding/json"
	"fmt"

	"inspection_booking_backend/internal/payments/gateway"

	"github.com/stripe/stripe-go/v76"
)

// Gateway event kinds the reconciler acts on. Every other kind is
// acknowledged and ignored.
const (
	KindCheckoutCompleted      = "checkout.session.completed"
	KindCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	KindIntentSucceeded        = "payment_intent.succeeded"
	KindChargeSucceeded        = "charge.succeeded"
)

// Event is a verified gateway event reduced to what reconciliation needs.
// It is safe to serialize onto the reconciliation queue.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Created     int64           `json:"created"`
	IntentID    string          `json:"intentId,omitempty"`
	Intent      *gateway.Intent `json:"intent,omitempty"`
	InvoiceID   string          `json:"invoiceId,omitempty"`
	AmountTotal int64           `json:"amountTotal,omitempty"`
	SessionPaid bool            `json:"sessionPaid,omitempty"`
}

// Handled reports whether the event kind is reconciled.
func (e Event) Handled() bool {
	switch e.Type {
	case KindCheckoutCompleted, KindCheckoutAsyncSucceeded, KindIntentSucceeded, KindChargeSucceeded:
		return true
	}
	return false
}

// FromStripe converts a verified Stripe event. Unknown kinds convert to an
// Event carrying only id and type.
func FromStripe(se stripe.Event) (Event, error) {
	ev := Event{ID: se.ID, Type: string(se.Type), Created: se.Created}
	if se.Data == nil || !ev.Handled() {
		return ev, nil
	}

	switch ev.Type {
	case KindCheckoutCompleted, KindCheckoutAsyncSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(se.Data.Raw, &session); err != nil {
			return ev, fmt.Errorf("decode checkout session: %w", err)
		}
		ev.InvoiceID = session.Metadata["invoice_id"]
		ev.AmountTotal = session.AmountTotal
		ev.SessionPaid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
		if session.PaymentIntent != nil {
			ev.IntentID = session.PaymentIntent.ID
		}
	case KindIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(se.Data.Raw, &pi); err != nil {
			return ev, fmt.Errorf("decode payment intent: %w", err)
		}
		intent := gateway.FromStripeIntent(&pi)
		ev.Intent = &intent
		ev.IntentID = pi.ID
		ev.InvoiceID = pi.Metadata["invoice_id"]
	case KindChargeSucceeded:
		var charge stripe.Charge
		if err := json.Unmarshal(se.Data.Raw, &charge); err != nil {
			return ev, fmt.Errorf("decode charge: %w", err)
		}
		if charge.PaymentIntent != nil {
			ev.IntentID = charge.PaymentIntent.ID
		}
		ev.InvoiceID = charge.Metadata["invoice_id"]
	}
	return ev, nil
}
