// Package service implements invoice creation and the approve-and-invoice
// composite. One invoice exists per proposal; every path looks it up first.
package service

import (
	"context"
	"strings"
	"time"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/invoices/transport"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

const (
	defaultDueDays  = 7
	statusApproved  = "approved"
	proposalLinkKey = "proposal.id"
)

// Service manages invoices.
type Service struct {
	store    crm.Store
	stages   *deals.Coordinator
	taxRates *billing.TaxRates
	links    *links.Builder
	cfg      config.InvoiceConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates the invoices service.
func New(store crm.Store, stages *deals.Coordinator, taxRates *billing.TaxRates, linkBuilder *links.Builder, cfg config.InvoiceConfig, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		stages:   stages,
		taxRates: taxRates,
		links:    linkBuilder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, invoiceID string) (transport.Invoice, error) {
	rec, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, strings.TrimSpace(invoiceID))
	if err != nil {
		return transport.Invoice{}, apperr.Upstream("failed to load invoice", err)
	}
	if !ok {
		return transport.Invoice{}, apperr.NotFound("invoice not found")
	}
	return toInvoice(rec, false), nil
}

// EnsureInvoice returns the newest invoice linked to the proposal, creating
// one when none exists.
func (s *Service) EnsureInvoice(ctx context.Context, in transport.EnsureInvoiceInput) (transport.Invoice, error) {
	proposalID := strings.TrimSpace(in.ProposalID)
	if proposalID == "" {
		return transport.Invoice{}, apperr.Validation("proposal id is required")
	}

	existing, ok, err := crm.FindLatest(ctx, s.store, crm.Invoices, crm.Eq(proposalLinkKey, proposalID))
	if err != nil {
		return transport.Invoice{}, apperr.Upstream("failed to look up invoices", err)
	}
	if ok {
		return toInvoice(existing, false), nil
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in transport.EnsureInvoiceInput) (transport.Invoice, error) {
	log := s.log.WithContext(ctx)
	proposalID := strings.TrimSpace(in.ProposalID)

	proposal, ok, err := crm.GetOptional(ctx, s.store, crm.Proposals, proposalID, "id", "deal", "contact", "quote_id", "quote_amount")
	if err != nil {
		return transport.Invoice{}, apperr.Upstream("failed to load proposal", err)
	}
	if !ok {
		return transport.Invoice{}, apperr.NotFound("proposal not found")
	}

	contactID := strings.TrimSpace(in.ContactID)
	if contactID == "" {
		contactID = proposal.String("contact")
	}
	if contactID == "" {
		return transport.Invoice{}, apperr.Validation("contact id is required to create an invoice")
	}

	// Callers may send cents; the proposal's stored quote_amount is always dollars.
	subtotal := billing.NormalizeSubtotal(in.AmountExcludingTax)
	if subtotal <= 0 {
		subtotal = billing.Round2(proposal.Float("quote_amount"))
	}
	totals := billing.Compute(subtotal, s.taxRates.Current(ctx), 0)

	now := s.now().UTC()
	payload := map[string]any{
		"contact":     contactID,
		"proposal":    []string{proposalID},
		"subtotal":    totals.Subtotal,
		"total_tax":   totals.TotalTax,
		"total":       totals.Total,
		"amount_paid": 0,
		"amount_due":  totals.Total,
		"issue_date":  now.Format(time.RFC3339),
		"due_date":    now.Add(time.Duration(s.dueDays()) * 24 * time.Hour).Format(time.RFC3339),
		"status":      s.cfg.GetInvoiceStatus(),
	}
	if number := proposal.String("quote_id"); number != "" {
		payload["invoice_id"] = number
	}
	if in.UserID != "" {
		payload["user"] = in.UserID
	}

	created, err := s.store.Create(ctx, crm.Invoices, payload)
	if err != nil {
		return transport.Invoice{}, apperr.Upstream("failed to create invoice", err)
	}
	invoiceID := created.ID()
	log.Info("invoice created", "invoiceId", invoiceID, "proposalId", proposalID, "total", totals.Total)

	dealID := proposal.String("deal")
	propertyID := s.propertyOfDeal(ctx, dealID)

	patch := map[string]any{
		"invoice_link": s.links.Build(links.StepInvoice, links.Params{
			UserID:     in.UserID,
			ContactID:  contactID,
			DealID:     dealID,
			PropertyID: propertyID,
			QuoteID:    proposalID,
			InvoiceID:  invoiceID,
		}),
	}
	if created.String("invoice_id") == "" {
		if number := billing.PublicNumber(invoiceID); number != "" {
			patch["invoice_id"] = number
		}
	}
	if _, err := s.store.Patch(ctx, crm.Invoices, invoiceID, patch); err != nil {
		log.SideEffectFailed("patch invoice link", err, "invoiceId", invoiceID)
	} else {
		for k, v := range patch {
			created[k] = v
		}
	}

	return toInvoice(created, true), nil
}

// ApproveAndInvoice approves the proposal and makes sure an invoice carrying
// the given total exists. Only failing to resolve any invoice is an error;
// the stage move, the approval and the totals patch are best effort.
func (s *Service) ApproveAndInvoice(ctx context.Context, in transport.ApproveInput) (transport.ApproveResult, error) {
	proposalID := strings.TrimSpace(in.ProposalID)
	if proposalID == "" {
		return transport.ApproveResult{}, apperr.Validation("proposal id is required")
	}
	log := s.log.WithContext(ctx)

	dealID := strings.TrimSpace(in.DealID)
	contactID := strings.TrimSpace(in.ContactID)
	if dealID == "" || contactID == "" {
		proposal, ok, err := crm.GetOptional(ctx, s.store, crm.Proposals, proposalID, "id", "deal", "contact")
		if err != nil {
			log.SideEffectFailed("load proposal for approval", err, "proposalId", proposalID)
		} else if ok {
			if dealID == "" {
				dealID = proposal.String("deal")
			}
			if contactID == "" {
				contactID = proposal.String("contact")
			}
		}
	}

	s.stages.Advance(ctx, dealID, deals.MilestoneInvoiceSubmitted)

	if _, err := s.store.Patch(ctx, crm.Proposals, proposalID, map[string]any{"status": statusApproved}); err != nil {
		log.SideEffectFailed("approve proposal", err, "proposalId", proposalID)
	}

	invoiceID := strings.TrimSpace(in.InvoiceID)
	if invoiceID == "" {
		existing, ok, err := crm.FindLatest(ctx, s.store, crm.Invoices, crm.Eq(proposalLinkKey, proposalID))
		if err != nil {
			return transport.ApproveResult{}, apperr.Upstream("failed to look up invoices", err)
		}
		if ok {
			invoiceID = existing.ID()
		}
	}
	if invoiceID == "" {
		created, err := s.create(ctx, transport.EnsureInvoiceInput{
			ProposalID:         proposalID,
			ContactID:          contactID,
			AmountExcludingTax: in.Total,
			UserID:             in.UserID,
		})
		if err != nil {
			log.Error("invoice could not be created on approval", "proposalId", proposalID, "error", err)
			return transport.ApproveResult{}, apperr.Upstream("no invoice could be resolved for the proposal", err)
		}
		invoiceID = created.ID
	}

	s.applyTotals(ctx, invoiceID, proposalID, billing.NormalizeSubtotal(in.Total))

	result := transport.ApproveResult{InvoiceID: invoiceID}
	if rec, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, invoiceID); err == nil && ok {
		result.Invoice = toInvoice(rec, false)
	} else {
		result.Invoice = transport.Invoice{ID: invoiceID}
	}
	return result, nil
}

// applyTotals rewrites the invoice totals from a tax-exclusive subtotal,
// keeping whatever has already been paid, and re-asserts the proposal link.
func (s *Service) applyTotals(ctx context.Context, invoiceID, proposalID string, subtotal float64) {
	log := s.log.WithContext(ctx)
	if subtotal <= 0 {
		return
	}

	paid := 0.0
	if current, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, invoiceID, "id", "amount_paid"); err != nil {
		log.SideEffectFailed("read invoice amount paid", err, "invoiceId", invoiceID)
	} else if ok {
		paid = current.Float("amount_paid")
	}

	totals := billing.Compute(subtotal, s.taxRates.Current(ctx), paid)
	if _, err := s.store.Patch(ctx, crm.Invoices, invoiceID, map[string]any{
		"subtotal":   totals.Subtotal,
		"total_tax":  totals.TotalTax,
		"total":      totals.Total,
		"amount_due": totals.AmountDue,
		"proposal":   []string{proposalID},
	}); err != nil {
		log.SideEffectFailed("update invoice totals", err, "invoiceId", invoiceID)
	}
}

// MarkApproved records that the customer accepted the invoice and moved on to
// payment.
func (s *Service) MarkApproved(ctx context.Context, invoiceID string) error {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return apperr.Validation("invoice id is required")
	}
	if _, err := s.store.Patch(ctx, crm.Invoices, invoiceID, map[string]any{"status": statusApproved}); err != nil {
		if crm.IsNotFound(err) {
			return apperr.NotFound("invoice not found")
		}
		return apperr.Upstream("failed to approve invoice", err)
	}
	return nil
}

func (s *Service) propertyOfDeal(ctx context.Context, dealID string) string {
	if dealID == "" {
		return ""
	}
	deal, ok, err := crm.GetOptional(ctx, s.store, crm.Deals, dealID, "id", "properties", "property")
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("load deal property", err, "dealId", dealID)
		return ""
	}
	if !ok {
		return ""
	}
	return deals.PropertyOf(deal)
}

func (s *Service) dueDays() int {
	if days := s.cfg.GetInvoiceDueDays(); days >= 1 {
		return days
	}
	return defaultDueDays
}

func toInvoice(rec crm.Record, created bool) transport.Invoice {
	proposalID := ""
	if ids := rec.IDs("proposal"); len(ids) > 0 {
		proposalID = ids[0]
	}
	return transport.Invoice{
		ID:            rec.ID(),
		InvoiceNumber: rec.String("invoice_id"),
		ContactID:     rec.String("contact"),
		ProposalID:    proposalID,
		Status:        rec.String("status"),
		Subtotal:      rec.Float("subtotal"),
		TotalTax:      rec.Float("total_tax"),
		Total:         rec.Float("total"),
		AmountPaid:    rec.Float("amount_paid"),
		AmountDue:     rec.Float("amount_due"),
		IssueDate:     rec.String("issue_date"),
		DueDate:       rec.String("due_date"),
		InvoiceLink:   rec.String("invoice_link"),
		Created:       created,
	}
}
