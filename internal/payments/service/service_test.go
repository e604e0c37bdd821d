package service

import (
	"context"
	"errors"
	"testing"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/payments/gateway/gatewaytest"
	"inspection_booking_backend/internal/payments/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

func newTestService(store *crmtest.Store, gw *gatewaytest.Gateway) *Service {
	cfg := &config.Config{
		PaymentCurrency:            "aud",
		StagePaymentSubmittedID:    "s-pay",
		StagePaymentFailureID:      "s-fail",
		StageClosedWonID:           "s-won",
		AppBaseURL:                 "https://book.example.com",
		ReasonRequiresConfirmation: testReasons.ReasonRequiresConfirmation,
		ReasonRequiresAction:       testReasons.ReasonRequiresAction,
		ReasonProcessing:           testReasons.ReasonProcessing,
		ReasonRequiresCapture:      testReasons.ReasonRequiresCapture,
	}
	log := logger.Nop()
	return New(store, deals.NewCoordinator(store, cfg, nil, log), gw, links.NewBuilder(cfg), cfg, log)
}

// seedInvoice creates deal 1, proposal 1 and an unpaid invoice 1 of 550.
func seedInvoice(store *crmtest.Store) (dealID, invoiceID string) {
	dealID = store.Seed(crm.Deals, crm.Record{"contact": "c1"})
	proposalID := store.Seed(crm.Proposals, crm.Record{"deal": dealID, "contact": "c1"})
	invoiceID = store.Seed(crm.Invoices, crm.Record{
		"proposal":   []any{proposalID},
		"contact":    "c1",
		"subtotal":   "500",
		"total_tax":  "50",
		"total":      "550",
		"amount_due": "550",
		"status":     "submitted",
	})
	return dealID, invoiceID
}

func TestEnsurePaymentRecordCreatesOnceAndReuses(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, gatewaytest.New())
	dealID, invoiceID := seedInvoice(store)
	ctx := context.Background()

	payment, err := svc.EnsurePaymentRecord(ctx, transport.EnsurePaymentInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payment.Created || payment.Amount != 550 || payment.Status != StatusSubmitted || payment.ContactID != "c1" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if payment.PaymentNumber != "100001" {
		t.Fatalf("expected payment number from invoice, got %q", payment.PaymentNumber)
	}
	want := "https://book.example.com/steps/06-payment?contactId=c1&dealId=" + dealID + "&quoteId=1&invoiceId=" + invoiceID + "&paymentId=" + payment.ID
	if payment.PaymentLink != want {
		t.Fatalf("payment link = %q, want %q", payment.PaymentLink, want)
	}
	if store.Record(crm.Deals, dealID).String("deal_stage") != "s-pay" {
		t.Fatalf("expected deal at payment submitted")
	}

	again, err := svc.EnsurePaymentRecord(ctx, transport.EnsurePaymentInput{InvoiceID: invoiceID, UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Created || again.ID != payment.ID {
		t.Fatalf("expected reuse of %s, got %+v", payment.ID, again)
	}
	if store.Creates(crm.Payments) != 1 {
		t.Fatalf("expected one payment create, got %d", store.Creates(crm.Payments))
	}
}

func TestEnsurePaymentRecordRefreshesFailedRowButKeepsSuccess(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, gatewaytest.New())
	_, invoiceID := seedInvoice(store)
	failed := store.Seed(crm.Payments, crm.Record{"invoice": invoiceID, "status": StatusFailure, "amount": "10"})

	payment, err := svc.EnsurePaymentRecord(context.Background(), transport.EnsurePaymentInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.ID != failed || payment.Status != StatusSubmitted || payment.Amount != 550 {
		t.Fatalf("expected failed row refreshed, got %+v", payment)
	}

	store.Patch(context.Background(), crm.Payments, failed, map[string]any{"status": StatusSuccess})
	payment, err = svc.EnsurePaymentRecord(context.Background(), transport.EnsurePaymentInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != StatusSuccess {
		t.Fatalf("expected succeeded row untouched, got %+v", payment)
	}
}

func TestEnsurePaymentRecordUnknownInvoice(t *testing.T) {
	svc := newTestService(crmtest.New(), gatewaytest.New())

	_, err := svc.EnsurePaymentRecord(context.Background(), transport.EnsurePaymentInput{InvoiceID: "404"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCheckoutCreatesIntentWithMetadata(t *testing.T) {
	store := crmtest.New()
	gw := gatewaytest.New()
	svc := newTestService(store, gw)
	_, invoiceID := seedInvoice(store)
	ctx := context.Background()

	res, err := svc.Checkout(ctx, transport.CheckoutInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IntentID == "" || res.ClientSecret == "" || res.Amount != 550 || res.Currency != "aud" {
		t.Fatalf("unexpected checkout %+v", res)
	}
	intent, err := gw.GetIntent(ctx, res.IntentID)
	if err != nil {
		t.Fatalf("intent not stored: %v", err)
	}
	if intent.Amount != 55000 {
		t.Fatalf("expected 55000 minor units, got %d", intent.Amount)
	}
	if intent.Metadata[MetaInvoiceID] != invoiceID || intent.Metadata[MetaPaymentID] != "100001" || intent.Metadata[MetaPaymentRecordID] != res.PaymentRecordID {
		t.Fatalf("unexpected metadata %+v", intent.Metadata)
	}
	if store.Record(crm.Payments, res.PaymentRecordID).String("stripe_payment_id") != res.IntentID {
		t.Fatalf("expected intent id recorded on payment")
	}

	again, err := svc.Checkout(ctx, transport.CheckoutInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.IntentID != res.IntentID || gw.Creates != 1 || store.Creates(crm.Payments) != 1 {
		t.Fatalf("expected refresh to reuse intent and payment, got %+v (intents=%d)", again, gw.Creates)
	}
}

func TestCheckoutRejectsPaidInvoiceAndFailsOnGatewayError(t *testing.T) {
	store := crmtest.New()
	gw := gatewaytest.New()
	svc := newTestService(store, gw)
	_, invoiceID := seedInvoice(store)
	ctx := context.Background()

	gw.CreateErr = errors.New("gateway down")
	if _, err := svc.Checkout(ctx, transport.CheckoutInput{InvoiceID: invoiceID}); !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	store.Patch(ctx, crm.Invoices, invoiceID, map[string]any{"status": "paid"})
	if _, err := svc.Checkout(ctx, transport.CheckoutInput{InvoiceID: invoiceID}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for paid invoice, got %v", err)
	}
}

func checkoutIntent(t *testing.T, svc *Service, gw *gatewaytest.Gateway, invoiceID string) gateway.Intent {
	t.Helper()
	res, err := svc.Checkout(context.Background(), transport.CheckoutInput{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	intent, err := gw.GetIntent(context.Background(), res.IntentID)
	if err != nil {
		t.Fatalf("intent not stored: %v", err)
	}
	return intent
}

func TestUpdateFromIntentRecordsDecline(t *testing.T) {
	store := crmtest.New()
	gw := gatewaytest.New()
	svc := newTestService(store, gw)
	dealID, invoiceID := seedInvoice(store)

	intent := checkoutIntent(t, svc, gw, invoiceID)
	intent.LastError = &gateway.PaymentError{Code: "card_declined", DeclineCode: "insufficient_funds"}
	gw.Put(intent)

	res, err := svc.UpdateFromIntent(context.Background(), transport.UpdateFromIntentInput{ClientSecret: intent.ClientSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated || res.Status != StatusFailure || res.FailureReason != "insufficient_funds | card_declined" {
		t.Fatalf("unexpected result %+v", res)
	}
	row := store.Record(crm.Payments, res.PaymentRecordID)
	if row.String("status") != StatusFailure || row.String("failure_reason") != "insufficient_funds | card_declined" {
		t.Fatalf("unexpected payment row %+v", row)
	}
	if store.Record(crm.Deals, dealID).String("deal_stage") != "s-fail" {
		t.Fatalf("expected deal at payment failure")
	}
	if store.Record(crm.Invoices, invoiceID).String("status") == "paid" {
		t.Fatalf("invoice must not be paid after a decline")
	}
}

func TestUpdateFromIntentSuccessSettlesInvoice(t *testing.T) {
	store := crmtest.New()
	gw := gatewaytest.New()
	svc := newTestService(store, gw)
	dealID, invoiceID := seedInvoice(store)
	ctx := context.Background()

	intent := checkoutIntent(t, svc, gw, invoiceID)
	intent.Status = gateway.StatusSucceeded
	intent.AmountReceived = 55000
	intent.Created = 1700000000
	gw.Put(intent)
	gw.PutCharge(intent.ID, &gateway.Charge{ID: "ch_1", ReceiptURL: "https://pay.example.com/r/1", MethodType: "card", CardBrand: "visa", CardLast4: "4242", Created: 1700000000})

	res, err := svc.UpdateFromIntent(ctx, transport.UpdateFromIntentInput{PaymentIntentID: intent.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated || res.Status != StatusSuccess {
		t.Fatalf("unexpected result %+v", res)
	}
	row := store.Record(crm.Payments, res.PaymentRecordID)
	if row.String("receipt_url") != "https://pay.example.com/r/1" || row.String("card_number") != "4242" || row.Float("amount") != 550 {
		t.Fatalf("unexpected payment row %+v", row)
	}
	invoice := store.Record(crm.Invoices, invoiceID)
	if invoice.String("status") != "paid" || invoice.Float("amount_paid") != 550 || invoice.Float("amount_due") != 0 {
		t.Fatalf("expected invoice settled, got %+v", invoice)
	}
	if store.Record(crm.Deals, dealID).String("deal_stage") != "s-won" {
		t.Fatalf("expected deal closed won, got %q", store.Record(crm.Deals, dealID).String("deal_stage"))
	}

	late, err := svc.UpdateFromIntent(ctx, transport.UpdateFromIntentInput{
		InvoiceID: invoiceID,
		ErrorCode: "card_declined",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if late.Updated || late.Reason != ReasonAlreadySucceeded {
		t.Fatalf("expected success to be kept, got %+v", late)
	}
}

func TestUpdateFromIntentWithoutPaymentRow(t *testing.T) {
	gw := gatewaytest.New()
	svc := newTestService(crmtest.New(), gw)
	gw.Put(gateway.Intent{ID: "pi_orphan", Status: gateway.StatusSucceeded, Amount: 1000})

	res, err := svc.UpdateFromIntent(context.Background(), transport.UpdateFromIntentInput{PaymentIntentID: "pi_orphan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Updated || res.Reason != ReasonNoPaymentRecord {
		t.Fatalf("expected no_payment_record, got %+v", res)
	}
}

func TestUpdateFromIntentFallsBackToClientError(t *testing.T) {
	store := crmtest.New()
	gw := gatewaytest.New()
	svc := newTestService(store, gw)
	_, invoiceID := seedInvoice(store)
	intent := checkoutIntent(t, svc, gw, invoiceID)
	gw.GetErr = errors.New("gateway down")

	res, err := svc.UpdateFromIntent(context.Background(), transport.UpdateFromIntentInput{PaymentIntentID: intent.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Updated || res.Reason != ReasonIntentUnavailable {
		t.Fatalf("expected intent_unavailable without client details, got %+v", res)
	}

	res, err = svc.UpdateFromIntent(context.Background(), transport.UpdateFromIntentInput{PaymentIntentID: intent.ID, ErrorCode: "card_declined"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated || res.Status != StatusFailure || res.FailureReason != "card_declined" {
		t.Fatalf("expected client error recorded, got %+v", res)
	}
}

func TestUpdateFromIntentRequiresAnIdentifier(t *testing.T) {
	svc := newTestService(crmtest.New(), gatewaytest.New())

	_, err := svc.UpdateFromIntent(context.Background(), transport.UpdateFromIntentInput{ErrorCode: "card_declined"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
