// Package service implements the payment step: one current payment row per
// invoice, gateway intents for checkout and the browser's post-confirmation
// report.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/internal/payments/gateway"
	"inspection_booking_backend/internal/payments/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultCurrency   = "aud"
	invoiceStatusPaid = "paid"

	// Metadata keys written on every intent.
	MetaInvoiceID       = "invoice_id"
	MetaPaymentID       = "payment_id"
	MetaPaymentRecordID = "payment_record_id"
)

// Service manages payment rows and gateway intents.
type Service struct {
	store    crm.Store
	stages   *deals.Coordinator
	gateway  gateway.Gateway
	links    *links.Builder
	cfg      config.PaymentConfig
	eventBus events.Bus
	log      *logger.Logger
}

// New creates the payments service.
func New(store crm.Store, stages *deals.Coordinator, gw gateway.Gateway, linkBuilder *links.Builder, cfg config.PaymentConfig, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		stages:  stages,
		gateway: gw,
		links:   linkBuilder,
		cfg:     cfg,
		log:     log,
	}
}

// SetEventBus sets the event bus for publishing domain events.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

// Reasons exposes the configured failure reasons to the reconciler.
func (s *Service) Reasons() config.FailureReasonConfig {
	return s.cfg
}

// Gateway returns the payment gateway used by the service.
func (s *Service) Gateway() gateway.Gateway {
	return s.gateway
}

// EnsurePaymentRecord returns the invoice's current payment row. An explicit
// payment id wins, then the invoice's latest payment; either is refreshed to
// "submitted" unless it already succeeded. Without one a row is created and
// the deal moves to Payment Submitted.
func (s *Service) EnsurePaymentRecord(ctx context.Context, in transport.EnsurePaymentInput) (transport.Payment, error) {
	invoiceID := strings.TrimSpace(in.InvoiceID)
	if invoiceID == "" {
		return transport.Payment{}, apperr.Validation("invoice id is required")
	}
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return transport.Payment{}, err
	}
	return s.ensurePayment(ctx, invoice, in)
}

func (s *Service) ensurePayment(ctx context.Context, invoice crm.Record, in transport.EnsurePaymentInput) (transport.Payment, error) {
	log := s.log.WithContext(ctx)
	invoiceID := invoice.ID()

	amount := in.Amount
	if amount <= 0 {
		amount = amountOwed(invoice)
	}
	contactID := strings.TrimSpace(in.ContactID)
	if contactID == "" {
		contactID = invoice.String("contact")
	}
	ref := s.dealRef(ctx, invoiceID, in)

	existing, ok, err := s.currentPayment(ctx, invoiceID, in.PaymentID)
	if err != nil {
		return transport.Payment{}, apperr.Upstream("failed to look up payments", err)
	}
	if ok {
		if existing.String("status") == StatusSuccess {
			return toPayment(existing, false), nil
		}
		patch := map[string]any{
			"status":       StatusSubmitted,
			"amount":       billing.Round2(amount),
			"payment_link": s.paymentLink(in, ref, contactID, invoiceID, existing.ID()),
		}
		if in.UserID != "" {
			patch["user"] = in.UserID
		}
		updated, err := s.store.Patch(ctx, crm.Payments, existing.ID(), patch)
		if err != nil {
			log.SideEffectFailed("refresh payment", err, "paymentId", existing.ID(), "invoiceId", invoiceID)
			return toPayment(existing, false), nil
		}
		return toPayment(updated, false), nil
	}

	payload := map[string]any{
		"status":  StatusSubmitted,
		"invoice": invoiceID,
		"amount":  billing.Round2(amount),
	}
	if contactID != "" {
		payload["contact"] = contactID
	}
	if in.UserID != "" {
		payload["user"] = in.UserID
	}
	if number := invoiceNumber(invoice); number != "" {
		payload["payment_id"] = number
	}

	created, err := s.store.Create(ctx, crm.Payments, payload)
	if err != nil {
		return transport.Payment{}, apperr.Upstream("failed to create payment", err)
	}
	paymentID := created.ID()
	log.Info("payment created", "paymentId", paymentID, "invoiceId", invoiceID, "amount", amount)

	link := s.paymentLink(in, ref, contactID, invoiceID, paymentID)
	if patched, err := s.store.Patch(ctx, crm.Payments, paymentID, map[string]any{"payment_link": link}); err != nil {
		log.SideEffectFailed("patch payment link", err, "paymentId", paymentID)
	} else {
		created = patched
	}

	s.stages.Advance(ctx, ref.DealID, deals.MilestonePaymentSubmitted)
	return toPayment(created, true), nil
}

// CreateIntent creates a gateway intent for a major-unit amount. The
// idempotency key is derived from invoice, payment and amount so a refreshed
// page gets the same intent back.
func (s *Service) CreateIntent(ctx context.Context, req transport.IntentRequest) (transport.IntentResult, error) {
	minor := billing.ToMinorUnits(req.Amount)
	if minor <= 0 {
		return transport.IntentResult{}, apperr.Validation("payment amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency()
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.IntentParams{
		AmountMinor:    minor,
		Currency:       currency,
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKey(req.InvoiceID, req.PaymentID, minor),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNotConfigured) {
			return transport.IntentResult{}, apperr.Upstream("payment gateway is not configured", err)
		}
		return transport.IntentResult{}, apperr.Upstream("failed to create payment intent", err)
	}
	return transport.IntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Checkout loads the invoice, ensures its payment row and creates the intent
// the payment page confirms. Only the intent is fatal after the invoice.
func (s *Service) Checkout(ctx context.Context, in transport.CheckoutInput) (transport.CheckoutResult, error) {
	log := s.log.WithContext(ctx)
	invoiceID := strings.TrimSpace(in.InvoiceID)
	if invoiceID == "" {
		return transport.CheckoutResult{}, apperr.Validation("invoice id is required")
	}
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return transport.CheckoutResult{}, err
	}
	if strings.EqualFold(invoice.String("status"), invoiceStatusPaid) {
		return transport.CheckoutResult{}, apperr.Conflict("invoice is already paid")
	}
	amount := amountOwed(invoice)
	if amount <= 0 {
		return transport.CheckoutResult{}, apperr.Validation("invoice has no amount due")
	}

	payment, err := s.ensurePayment(ctx, invoice, transport.EnsurePaymentInput{
		InvoiceID:  invoiceID,
		ContactID:  in.ContactID,
		Amount:     amount,
		UserID:     in.UserID,
		DealID:     in.DealID,
		PropertyID: in.PropertyID,
		QuoteID:    in.QuoteID,
		PaymentID:  in.PaymentID,
	})
	if err != nil {
		return transport.CheckoutResult{}, err
	}
	if payment.Status == StatusSuccess {
		return transport.CheckoutResult{}, apperr.Conflict("invoice is already paid")
	}

	number := payment.PaymentNumber
	if number == "" {
		number = invoiceNumber(invoice)
	}
	currency := s.currency()
	intent, err := s.CreateIntent(ctx, transport.IntentRequest{
		InvoiceID: invoiceID,
		PaymentID: payment.ID,
		Amount:    amount,
		Currency:  currency,
		Metadata: map[string]string{
			MetaInvoiceID:       invoiceID,
			MetaPaymentID:       number,
			MetaPaymentRecordID: payment.ID,
		},
	})
	if err != nil {
		return transport.CheckoutResult{}, err
	}

	if payment.StripePaymentID != intent.IntentID {
		if _, err := s.store.Patch(ctx, crm.Payments, payment.ID, map[string]any{"stripe_payment_id": intent.IntentID}); err != nil {
			log.SideEffectFailed("record intent on payment", err, "paymentId", payment.ID, "intentId", intent.IntentID)
		}
	}
	log.Info("checkout started", "invoiceId", invoiceID, "paymentId", payment.ID, "intentId", intent.IntentID)

	return transport.CheckoutResult{
		IntentResult:    intent,
		PaymentRecordID: payment.ID,
		PaymentNumber:   number,
		InvoiceID:       invoiceID,
		Amount:          billing.Round2(amount),
		Currency:        currency,
		ReceiptLink: s.links.Build(links.StepReceipt, links.Params{
			UserID:    in.UserID,
			ContactID: payment.ContactID,
			DealID:    in.DealID,
			InvoiceID: invoiceID,
			PaymentID: payment.ID,
		}),
	}, nil
}

func (s *Service) loadInvoice(ctx context.Context, invoiceID string) (crm.Record, error) {
	invoice, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, invoiceID)
	if err != nil {
		return nil, apperr.Upstream("failed to load invoice", err)
	}
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	return invoice, nil
}

// currentPayment prefers the explicit payment id, then the invoice's latest.
func (s *Service) currentPayment(ctx context.Context, invoiceID, paymentID string) (crm.Record, bool, error) {
	if paymentID = strings.TrimSpace(paymentID); paymentID != "" {
		rec, ok, err := crm.GetOptional(ctx, s.store, crm.Payments, paymentID)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rec, true, nil
		}
	}
	return crm.FindLatest(ctx, s.store, crm.Payments, crm.Eq("invoice", invoiceID))
}

func (s *Service) dealRef(ctx context.Context, invoiceID string, in transport.EnsurePaymentInput) deals.DealRef {
	ref := deals.DealRef{
		DealID:     strings.TrimSpace(in.DealID),
		ProposalID: strings.TrimSpace(in.QuoteID),
		PropertyID: strings.TrimSpace(in.PropertyID),
	}
	if ref.DealID != "" {
		return ref
	}
	resolved, err := s.stages.ResolveFromInvoice(ctx, invoiceID)
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("resolve deal from invoice", err, "invoiceId", invoiceID)
	}
	ref.DealID = resolved.DealID
	if ref.ProposalID == "" {
		ref.ProposalID = resolved.ProposalID
	}
	if ref.PropertyID == "" {
		ref.PropertyID = resolved.PropertyID
	}
	return ref
}

func (s *Service) paymentLink(in transport.EnsurePaymentInput, ref deals.DealRef, contactID, invoiceID, paymentID string) string {
	return s.links.Build(links.StepPayment, links.Params{
		UserID:     in.UserID,
		ContactID:  contactID,
		DealID:     ref.DealID,
		PropertyID: ref.PropertyID,
		QuoteID:    ref.ProposalID,
		InvoiceID:  invoiceID,
		PaymentID:  paymentID,
	})
}

func (s *Service) currency() string {
	if c := strings.ToLower(strings.TrimSpace(s.cfg.GetPaymentCurrency())); c != "" {
		return c
	}
	return defaultCurrency
}

// amountOwed is amount_due when the invoice carries one, else total, else
// subtotal.
func amountOwed(invoice crm.Record) float64 {
	if invoice.Has("amount_due") {
		return invoice.Float("amount_due")
	}
	if total := invoice.Float("total"); total > 0 {
		return total
	}
	return invoice.Float("subtotal")
}

// invoiceNumber is the invoice's public number, derived from its id when the
// record does not carry one.
func invoiceNumber(invoice crm.Record) string {
	if number := invoice.String("invoice_id"); number != "" {
		return number
	}
	return billing.PublicNumber(invoice.ID())
}

func idempotencyKey(invoiceID, paymentID string, minor int64) string {
	name := fmt.Sprintf("checkout:%s:%s:%d", invoiceID, paymentID, minor)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func toPayment(rec crm.Record, created bool) transport.Payment {
	return transport.Payment{
		ID:              rec.ID(),
		PaymentNumber:   rec.String("payment_id"),
		InvoiceID:       rec.String("invoice"),
		ContactID:       rec.String("contact"),
		Amount:          rec.Float("amount"),
		Status:          rec.String("status"),
		FailureReason:   rec.String("failure_reason"),
		StripePaymentID: rec.String("stripe_payment_id"),
		ReceiptURL:      rec.String("receipt_url"),
		PaymentLink:     rec.String("payment_link"),
		Created:         created,
	}
}
