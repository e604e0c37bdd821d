package service

import (
	"strings"
	"time"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/platform/config"
)

// Payment row statuses.
const (
	StatusSubmitted = "submitted"
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusFailed    = "failed"
)

// Outcome is the internal status derived from a gateway intent.
type Outcome struct {
	Status        string
	FailureReason string
}

// Succeeded reports whether the intent collected the money.
func (o Outcome) Succeeded() bool { return o.Status == StatusSuccess }

// Failed reports whether the outcome must never create a payment row.
func (o Outcome) Failed() bool { return o.Status == StatusFailure || o.Status == StatusFailed }

// MapIntentStatus maps every gateway intent status to a row status and
// reason. A new gateway status needs exactly one new case here.
func MapIntentStatus(intent gateway.Intent, reasons config.FailureReasonConfig) Outcome {
	switch intent.Status {
	case gateway.StatusSucceeded:
		return Outcome{Status: StatusSuccess}
	case gateway.StatusRequiresPaymentMethod:
		return Outcome{Status: StatusFailure, FailureReason: paymentMethodReason(intent.LastError)}
	case gateway.StatusRequiresConfirmation:
		return Outcome{Status: StatusFailure, FailureReason: reasons.GetReasonRequiresConfirmation()}
	case gateway.StatusRequiresAction:
		return Outcome{Status: StatusFailure, FailureReason: reasons.GetReasonRequiresAction()}
	case gateway.StatusProcessing:
		return Outcome{Status: StatusFailure, FailureReason: reasons.GetReasonProcessing()}
	case gateway.StatusRequiresCapture:
		return Outcome{Status: StatusFailure, FailureReason: reasons.GetReasonRequiresCapture()}
	}
	if reason := errorReason(intent.LastError); reason != "" {
		return Outcome{Status: StatusFailure, FailureReason: reason}
	}
	reason := "Payment did not complete"
	if intent.Status != "" {
		reason = "Payment " + intent.Status
	}
	return Outcome{Status: StatusFailed, FailureReason: reason}
}

// paymentMethodReason renders "decline_code | code", falling back to the
// gateway message.
func paymentMethodReason(pe *gateway.PaymentError) string {
	if reason := errorReason(pe); reason != "" {
		return reason
	}
	return "Payment method required"
}

func errorReason(pe *gateway.PaymentError) string {
	if pe == nil {
		return ""
	}
	var parts []string
	for _, part := range []string{pe.DeclineCode, pe.Code} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " | ")
	}
	return strings.TrimSpace(pe.Message)
}

// PaymentPatch renders the payment row fields for an intent, its latest
// charge (may be nil) and the mapped outcome. The synchronous path and the
// webhook reconciler both write exactly this patch.
func PaymentPatch(intent gateway.Intent, charge *gateway.Charge, outcome Outcome) map[string]any {
	patch := map[string]any{
		"status":            outcome.Status,
		"stripe_payment_id": intent.ID,
	}
	if outcome.Succeeded() {
		patch["failure_reason"] = nil
	} else {
		patch["failure_reason"] = outcome.FailureReason
	}
	if cents := intent.Collected(); cents > 0 {
		patch["amount"] = billing.FromMinorUnits(cents)
	}

	created := intent.Created
	methodType := ""
	if len(intent.PaymentMethodTypes) > 0 {
		methodType = intent.PaymentMethodTypes[0]
	}
	if charge != nil {
		if charge.Created > 0 {
			created = charge.Created
		}
		if charge.MethodType != "" {
			methodType = charge.MethodType
		}
		setIf(patch, "transaction_id", charge.ID)
		setIf(patch, "receipt_url", charge.ReceiptURL)
		setIf(patch, "card_type", charge.CardBrand)
		setIf(patch, "card_number", charge.CardLast4)
		if charge.ExpMonth > 0 {
			patch["exp_month"] = charge.ExpMonth
		}
		if charge.ExpYear > 0 {
			patch["exp_year"] = charge.ExpYear
		}
	}
	setIf(patch, "payment_method_type", methodType)
	if created > 0 {
		patch["payment_date"] = time.Unix(created, 0).UTC().Format(time.RFC3339)
	}
	return patch
}

func setIf(patch map[string]any, key, value string) {
	if value != "" {
		patch[key] = value
	}
}

// IntentIDFromSecret extracts "pi_xxx" from a "pi_xxx_secret_yyy" client
// secret. Anything else yields "".
func IntentIDFromSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	idx := strings.Index(secret, "_secret")
	if idx <= 0 || !strings.HasPrefix(secret, "pi_") {
		return ""
	}
	return secret[:idx]
}
