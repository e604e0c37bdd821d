package service

import (
	"context"
	"strings"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/payments/transport"
	"inspection_booking_backend/platform/apperr"
)

// Reasons reported by UpdateFromIntent when nothing was patched.
const (
	ReasonIntentUnavailable = "intent_unavailable"
	ReasonNoPaymentRecord   = "no_payment_record"
	ReasonAlreadySucceeded  = "already_succeeded"
)

// PaymentRef identifies a payment row. Keys are tried in field order.
type PaymentRef struct {
	RecordID  string
	IntentID  string
	InvoiceID string
}

// ResolvePayment finds the payment row for ref: explicit record id, then the
// row carrying the intent id, then the invoice's latest row.
func (s *Service) ResolvePayment(ctx context.Context, ref PaymentRef) (crm.Record, bool, error) {
	if id := strings.TrimSpace(ref.RecordID); id != "" {
		rec, ok, err := crm.GetOptional(ctx, s.store, crm.Payments, id)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rec, true, nil
		}
	}
	if id := strings.TrimSpace(ref.IntentID); id != "" {
		rec, ok, err := crm.FindLatest(ctx, s.store, crm.Payments, crm.Eq("stripe_payment_id", id))
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rec, true, nil
		}
	}
	if id := strings.TrimSpace(ref.InvoiceID); id != "" {
		return crm.FindLatest(ctx, s.store, crm.Payments, crm.Eq("invoice", id))
	}
	return nil, false, nil
}

// UpdateFromIntent applies the browser's post-confirmation report to the
// payment row. It never creates a row; an unresolvable row is reported, not
// an error.
func (s *Service) UpdateFromIntent(ctx context.Context, in transport.UpdateFromIntentInput) (transport.UpdateResult, error) {
	log := s.log.WithContext(ctx)

	intentID := strings.TrimSpace(in.PaymentIntentID)
	if intentID == "" {
		intentID = IntentIDFromSecret(in.ClientSecret)
	}
	clientErr := clientError(in)
	if intentID == "" && strings.TrimSpace(in.InvoiceID) == "" && strings.TrimSpace(in.PaymentID) == "" {
		return transport.UpdateResult{}, apperr.Validation("payment intent, invoice or payment id is required")
	}

	var (
		intent    gateway.Intent
		retrieved bool
	)
	if intentID != "" {
		got, err := s.gateway.GetIntent(ctx, intentID)
		if err != nil {
			log.SideEffectFailed("retrieve payment intent", err, "intentId", intentID)
		} else {
			intent, retrieved = got, true
		}
	}
	if !retrieved {
		if clientErr == nil {
			return transport.UpdateResult{Reason: ReasonIntentUnavailable}, nil
		}
		intent = gateway.Intent{ID: intentID}
	}
	if intent.LastError == nil && intent.Status != gateway.StatusSucceeded {
		intent.LastError = clientErr
	}
	outcome := MapIntentStatus(intent, s.cfg)

	invoiceID := strings.TrimSpace(in.InvoiceID)
	if invoiceID == "" {
		invoiceID = intent.Metadata[MetaInvoiceID]
	}
	recordID := strings.TrimSpace(in.PaymentID)
	if recordID == "" {
		recordID = intent.Metadata[MetaPaymentRecordID]
	}

	row, ok, err := s.ResolvePayment(ctx, PaymentRef{RecordID: recordID, IntentID: intent.ID, InvoiceID: invoiceID})
	if err != nil {
		return transport.UpdateResult{}, apperr.Upstream("failed to look up payment", err)
	}
	if !ok {
		log.Info("no payment row for intent report", "intentId", intent.ID, "invoiceId", invoiceID)
		return transport.UpdateResult{Reason: ReasonNoPaymentRecord}, nil
	}
	if row.String("status") == StatusSuccess && !outcome.Succeeded() {
		return transport.UpdateResult{Reason: ReasonAlreadySucceeded, PaymentRecordID: row.ID(), Status: StatusSuccess}, nil
	}
	if invoiceID == "" {
		invoiceID = row.String("invoice")
	}

	var charge *gateway.Charge
	if retrieved {
		if charge, err = s.gateway.LatestCharge(ctx, intent.ID); err != nil {
			log.SideEffectFailed("load latest charge", err, "intentId", intent.ID)
		}
	}
	patch := PaymentPatch(intent, charge, outcome)
	if intent.ID == "" {
		delete(patch, "stripe_payment_id")
	}
	if _, err := s.store.Patch(ctx, crm.Payments, row.ID(), patch); err != nil {
		return transport.UpdateResult{}, apperr.Upstream("failed to update payment", err)
	}
	log.Info("payment updated from intent", "paymentId", row.ID(), "intentId", intent.ID, "status", outcome.Status)

	ref := s.dealRef(ctx, invoiceID, transport.EnsurePaymentInput{})
	if outcome.Succeeded() {
		s.stages.Advance(ctx, ref.DealID, deals.MilestonePaymentSubmitted)
		settlement := Settlement{
			InvoiceID: invoiceID,
			PaymentID: row.ID(),
			Amount:    billing.FromMinorUnits(intent.Collected()),
		}
		if charge != nil {
			settlement.ReceiptURL = charge.ReceiptURL
		}
		if _, err := s.SettleInvoice(ctx, settlement); err != nil {
			log.SideEffectFailed("settle invoice", err, "invoiceId", invoiceID)
		}
	} else {
		s.stages.Advance(ctx, ref.DealID, deals.MilestonePaymentFailure)
		if s.eventBus != nil {
			s.eventBus.Publish(ctx, events.PaymentFailed{
				BaseEvent: events.NewBaseEvent(),
				InvoiceID: invoiceID,
				PaymentID: row.ID(),
				Reason:    outcome.FailureReason,
			})
		}
	}

	return transport.UpdateResult{
		Updated:         true,
		PaymentRecordID: row.ID(),
		Status:          outcome.Status,
		FailureReason:   outcome.FailureReason,
	}, nil
}

func clientError(in transport.UpdateFromIntentInput) *gateway.PaymentError {
	pe := &gateway.PaymentError{
		Code:        strings.TrimSpace(in.ErrorCode),
		DeclineCode: strings.TrimSpace(in.DeclineCode),
		Message:     strings.TrimSpace(in.ErrorMessage),
	}
	if pe.Code == "" && pe.DeclineCode == "" && pe.Message == "" {
		return nil
	}
	return pe
}

// Settlement is a successful collection against an invoice.
type Settlement struct {
	InvoiceID  string
	PaymentID  string
	Amount     float64
	ReceiptURL string
}

// SettleInvoice marks the invoice paid with the collected amount and closes
// the reachable deals. It reports whether the invoice changed; repeating a
// settlement re-applies the same values and publishes nothing.
func (s *Service) SettleInvoice(ctx context.Context, st Settlement) (bool, error) {
	invoiceID := strings.TrimSpace(st.InvoiceID)
	if invoiceID == "" {
		return false, nil
	}
	invoice, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, invoiceID, "id", "status", "total", "amount_paid", "contact")
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.WithContext(ctx).Warn("settlement for unknown invoice", "invoiceId", invoiceID)
		return false, nil
	}

	paid := billing.Round2(st.Amount)
	if paid <= 0 {
		paid = invoice.Float("total")
	}
	changed := !strings.EqualFold(invoice.String("status"), invoiceStatusPaid) || invoice.Float("amount_paid") != paid

	if _, err := s.store.Patch(ctx, crm.Invoices, invoiceID, map[string]any{
		"status":      invoiceStatusPaid,
		"amount_paid": paid,
		"amount_due":  billing.AmountDue(invoice.Float("total"), paid),
	}); err != nil {
		return false, err
	}
	s.stages.CloseDealFromInvoice(ctx, invoiceID)

	if changed && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.InvoicePaid{
			BaseEvent:  events.NewBaseEvent(),
			InvoiceID:  invoiceID,
			PaymentID:  st.PaymentID,
			ContactID:  invoice.String("contact"),
			AmountPaid: paid,
			ReceiptURL: st.ReceiptURL,
		})
	}
	return changed, nil
}
