package service

import (
	"testing"

	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/platform/config"
)

var testReasons = &config.Config{
	ReasonRequiresConfirmation: "needs confirmation",
	ReasonRequiresAction:       "needs authentication",
	ReasonProcessing:           "bank processing",
	ReasonRequiresCapture:      "awaiting capture",
}

func TestMapIntentStatus(t *testing.T) {
	cases := []struct {
		name   string
		intent gateway.Intent
		want   Outcome
	}{
		{"succeeded", gateway.Intent{Status: "succeeded"}, Outcome{Status: StatusSuccess}},
		{"declined", gateway.Intent{Status: "requires_payment_method", LastError: &gateway.PaymentError{Code: "card_declined", DeclineCode: "insufficient_funds"}}, Outcome{StatusFailure, "insufficient_funds | card_declined"}},
		{"declined message only", gateway.Intent{Status: "requires_payment_method", LastError: &gateway.PaymentError{Message: "Your card was declined."}}, Outcome{StatusFailure, "Your card was declined."}},
		{"payment method without error", gateway.Intent{Status: "requires_payment_method"}, Outcome{StatusFailure, "Payment method required"}},
		{"confirmation", gateway.Intent{Status: "requires_confirmation"}, Outcome{StatusFailure, "needs confirmation"}},
		{"action", gateway.Intent{Status: "requires_action"}, Outcome{StatusFailure, "needs authentication"}},
		{"processing", gateway.Intent{Status: "processing"}, Outcome{StatusFailure, "bank processing"}},
		{"capture", gateway.Intent{Status: "requires_capture"}, Outcome{StatusFailure, "awaiting capture"}},
		{"unknown with error", gateway.Intent{Status: "something_new", LastError: &gateway.PaymentError{Code: "expired_card"}}, Outcome{StatusFailure, "expired_card"}},
		{"canceled", gateway.Intent{Status: "canceled"}, Outcome{StatusFailed, "Payment canceled"}},
		{"absent", gateway.Intent{}, Outcome{StatusFailed, "Payment did not complete"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapIntentStatus(tc.intent, testReasons); got != tc.want {
				t.Fatalf("MapIntentStatus = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestIntentIDFromSecret(t *testing.T) {
	if got := IntentIDFromSecret("pi_3Abc_secret_xyz"); got != "pi_3Abc" {
		t.Fatalf("expected pi_3Abc, got %q", got)
	}
	if got := IntentIDFromSecret("seti_123_secret_xyz"); got != "" {
		t.Fatalf("expected no id for a setup intent secret, got %q", got)
	}
	if got := IntentIDFromSecret("pi_123"); got != "" {
		t.Fatalf("expected no id without a secret suffix, got %q", got)
	}
}

func TestPaymentPatchPrefersChargeDetails(t *testing.T) {
	intent := gateway.Intent{
		ID:                 "pi_1",
		Status:             "succeeded",
		Amount:             55000,
		AmountReceived:     55000,
		Created:            1700000000,
		PaymentMethodTypes: []string{"card"},
	}
	charge := &gateway.Charge{
		ID:         "ch_1",
		ReceiptURL: "https://pay.example.com/receipt/ch_1",
		MethodType: "card",
		CardBrand:  "visa",
		CardLast4:  "4242",
		ExpMonth:   12,
		ExpYear:    2030,
		Created:    1700000100,
	}

	patch := PaymentPatch(intent, charge, Outcome{Status: StatusSuccess})
	if patch["amount"] != 550.0 {
		t.Fatalf("expected amount 550, got %v", patch["amount"])
	}
	if patch["payment_date"] != "2023-11-14T22:15:00Z" {
		t.Fatalf("expected charge date, got %v", patch["payment_date"])
	}
	if patch["transaction_id"] != "ch_1" || patch["card_type"] != "visa" || patch["card_number"] != "4242" {
		t.Fatalf("missing card details: %+v", patch)
	}
	if patch["exp_month"] != int64(12) || patch["exp_year"] != int64(2030) {
		t.Fatalf("missing expiry: %+v", patch)
	}
	if v, ok := patch["failure_reason"]; !ok || v != nil {
		t.Fatalf("expected failure reason cleared, got %v", v)
	}

	noCharge := PaymentPatch(gateway.Intent{ID: "pi_2", Amount: 1000, PaymentMethodTypes: []string{"au_becs_debit"}}, nil, Outcome{StatusFailure, "bank processing"})
	if noCharge["amount"] != 10.0 || noCharge["payment_method_type"] != "au_becs_debit" {
		t.Fatalf("expected intent fallbacks, got %+v", noCharge)
	}
	if _, ok := noCharge["payment_date"]; ok {
		t.Fatalf("expected no payment date without timestamps")
	}
	if noCharge["failure_reason"] != "bank processing" {
		t.Fatalf("expected failure reason, got %v", noCharge["failure_reason"])
	}
}
