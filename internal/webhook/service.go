// Package webhook reconciles payment gateway events with local payment and
// invoice state. Reconciliation is safe to repeat for the same intent and in
// any order relative to the synchronous checkout path.
package webhook

import (
	"context"
	"fmt"
	"strings"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/payments/gateway"
	payments "inspection_booking_backend/internal/payments/service"
	"inspection_booking_backend/platform/logger"
)

// Reconciler applies gateway events to the CRM.
type Reconciler struct {
	store    crm.Store
	payments *payments.Service
	gateway  gateway.Gateway
	log      *logger.Logger
}

// NewReconciler creates a Reconciler sharing the payment manager's lookup,
// status mapping and settlement.
func NewReconciler(store crm.Store, paymentsSvc *payments.Service, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		payments: paymentsSvc,
		gateway:  paymentsSvc.Gateway(),
		log:      log,
	}
}

// Handle reconciles one event. A returned error means the gateway should
// redeliver.
func (r *Reconciler) Handle(ctx context.Context, ev Event) error {
	ctx = context.WithValue(ctx, logger.EventIDKey, ev.ID)
	log := r.log.WithContext(ctx)

	if !ev.Handled() {
		log.Debug("ignoring gateway event", "type", ev.Type)
		return nil
	}

	intent, err := r.intentOf(ctx, ev)
	if err != nil {
		return err
	}
	if intent == nil {
		// A checkout session can complete without an intent (nothing to collect).
		if ev.Type == KindCheckoutCompleted && ev.SessionPaid && ev.InvoiceID != "" {
			_, err := r.payments.SettleInvoice(ctx, payments.Settlement{
				InvoiceID: ev.InvoiceID,
				Amount:    billing.FromMinorUnits(ev.AmountTotal),
			})
			return err
		}
		log.Info("gateway event without payment intent", "type", ev.Type)
		return nil
	}
	return r.ReconcilePaymentIntent(ctx, ev, *intent)
}

// intentOf returns the embedded intent or retrieves it from the gateway.
func (r *Reconciler) intentOf(ctx context.Context, ev Event) (*gateway.Intent, error) {
	if ev.Intent != nil {
		return ev.Intent, nil
	}
	if ev.IntentID == "" {
		return nil, nil
	}
	intent, err := r.gateway.GetIntent(ctx, ev.IntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", ev.IntentID, err)
	}
	return &intent, nil
}

// ReconcilePaymentIntent brings the payment row and invoice in line with the
// intent:
//  1. load the latest charge for receipt and card details
//  2. resolve the payment row by record id, intent id, then invoice
//  3. patch the row, or create one unless the outcome is a failure
//  4. on success settle the invoice and close the reachable deals
func (r *Reconciler) ReconcilePaymentIntent(ctx context.Context, ev Event, intent gateway.Intent) error {
	log := r.log.WithContext(ctx)
	outcome := payments.MapIntentStatus(intent, r.payments.Reasons())

	invoiceID := strings.TrimSpace(intent.Metadata[payments.MetaInvoiceID])
	if invoiceID == "" {
		invoiceID = ev.InvoiceID
	}

	charge, err := r.gateway.LatestCharge(ctx, intent.ID)
	if err != nil {
		log.SideEffectFailed("load latest charge", err, "intentId", intent.ID)
	}

	row, ok, err := r.payments.ResolvePayment(ctx, payments.PaymentRef{
		RecordID:  intent.Metadata[payments.MetaPaymentRecordID],
		IntentID:  intent.ID,
		InvoiceID: invoiceID,
	})
	if err != nil {
		return fmt.Errorf("resolve payment for intent %s: %w", intent.ID, err)
	}

	patch := payments.PaymentPatch(intent, charge, outcome)
	paymentID := ""
	switch {
	case ok && row.String("status") == payments.StatusSuccess && !outcome.Succeeded():
		log.Info("keeping succeeded payment", "paymentId", row.ID(), "intentStatus", intent.Status)
		return nil
	case ok:
		if _, err := r.store.Patch(ctx, crm.Payments, row.ID(), patch); err != nil {
			return fmt.Errorf("patch payment %s: %w", row.ID(), err)
		}
		paymentID = row.ID()
	case outcome.Failed():
		log.Info("no payment row for failed intent; nothing to record", "intentId", intent.ID, "invoiceId", invoiceID)
		return nil
	default:
		created, err := r.createPayment(ctx, intent, invoiceID, patch)
		if err != nil {
			return err
		}
		paymentID = created
	}
	log.Info("payment reconciled", "paymentId", paymentID, "intentId", intent.ID, "status", outcome.Status)

	if !outcome.Succeeded() || invoiceID == "" {
		return nil
	}
	amount := billing.FromMinorUnits(intent.Collected())
	if ev.Type == KindCheckoutCompleted && ev.AmountTotal > 0 {
		amount = billing.FromMinorUnits(ev.AmountTotal)
	}
	settlement := payments.Settlement{InvoiceID: invoiceID, PaymentID: paymentID, Amount: amount}
	if charge != nil {
		settlement.ReceiptURL = charge.ReceiptURL
	}
	if _, err := r.payments.SettleInvoice(ctx, settlement); err != nil {
		return fmt.Errorf("settle invoice %s: %w", invoiceID, err)
	}
	return nil
}

func (r *Reconciler) createPayment(ctx context.Context, intent gateway.Intent, invoiceID string, patch map[string]any) (string, error) {
	log := r.log.WithContext(ctx)

	payload := make(map[string]any, len(patch)+3)
	for k, v := range patch {
		payload[k] = v
	}
	if invoiceID != "" {
		payload["invoice"] = invoiceID
		invoice, ok, err := crm.GetOptional(ctx, r.store, crm.Invoices, invoiceID, "id", "contact")
		if err != nil {
			log.SideEffectFailed("load invoice contact", err, "invoiceId", invoiceID)
		} else if ok && invoice.String("contact") != "" {
			payload["contact"] = invoice.String("contact")
		}
	}
	number := strings.TrimSpace(intent.Metadata[payments.MetaPaymentID])
	if number != "" {
		payload["payment_id"] = number
	}

	created, err := r.store.Create(ctx, crm.Payments, payload)
	if err != nil {
		return "", fmt.Errorf("create payment for intent %s: %w", intent.ID, err)
	}
	paymentID := created.ID()
	if number == "" {
		if derived := billing.PublicNumber(paymentID); derived != "" {
			if _, err := r.store.Patch(ctx, crm.Payments, paymentID, map[string]any{"payment_id": derived}); err != nil {
				log.SideEffectFailed("patch payment number", err, "paymentId", paymentID)
			}
		}
	}
	log.Info("payment created from gateway event", "paymentId", paymentID, "intentId", intent.ID)
	return paymentID, nil
}
