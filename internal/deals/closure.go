package deals

import (
	"context"
	"strings"
	"sync"
	"time"

	"inspection_booking_backend/internal/crm"

	"golang.org/x/sync/errgroup"
)

const maxClosureFanout = 4

// CloseDealFromInvoice walks invoice -> proposals -> deals and moves every
// reachable deal to Closed-Won, recording the deal value and close date.
// It returns the ids of the deals it patched; an unreachable deal is a no-op.
func (c *Coordinator) CloseDealFromInvoice(ctx context.Context, invoiceID string) []string {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil
	}
	log := c.log.WithContext(ctx)

	invoice, ok, err := crm.GetOptional(ctx, c.store, crm.Invoices, invoiceID, "id", "proposal", "total", "amount_paid")
	if err != nil {
		log.SideEffectFailed("load invoice for deal closure", err, "invoiceId", invoiceID)
		return nil
	}
	if !ok {
		return nil
	}
	proposalIDs := invoice.IDs("proposal")
	if len(proposalIDs) == 0 {
		return nil
	}

	stageID := c.StageID(ctx, MilestoneClosedWon)
	if stageID == "" {
		log.Warn("closed-won stage unresolved; deal closure skipped", "invoiceId", invoiceID)
		return nil
	}

	dealValue := invoice.Float("amount_paid")
	if dealValue <= 0 {
		dealValue = invoice.Float("total")
	}
	closeDate := c.paymentDate(ctx, invoiceID)

	var (
		mu     sync.Mutex
		seen   = make(map[string]bool)
		closed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxClosureFanout)
	for _, pid := range proposalIDs {
		g.Go(func() error {
			proposal, ok, err := crm.GetOptional(gctx, c.store, crm.Proposals, pid, "id", "deal")
			if err != nil {
				log.SideEffectFailed("load proposal for deal closure", err, "proposalId", pid)
				return nil
			}
			dealID := proposal.String("deal")
			if !ok || dealID == "" {
				return nil
			}

			mu.Lock()
			if seen[dealID] {
				mu.Unlock()
				return nil
			}
			seen[dealID] = true
			mu.Unlock()

			patch := map[string]any{}
			if c.allowed(gctx, dealID, MilestoneClosedWon) {
				patch["deal_stage"] = stageID
			}
			if dealValue > 0 {
				patch["deal_value"] = dealValue
			}
			if closeDate != "" {
				patch["close_date"] = closeDate
			}
			if len(patch) == 0 {
				return nil
			}
			if _, err := c.store.Patch(gctx, crm.Deals, dealID, patch); err != nil {
				log.SideEffectFailed("close deal", err, "dealId", dealID, "invoiceId", invoiceID)
				return nil
			}

			mu.Lock()
			closed = append(closed, dealID)
			mu.Unlock()
			if _, staged := patch["deal_stage"]; staged {
				c.publish(ctx, dealID, MilestoneClosedWon, stageID)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("deals closed from invoice", "invoiceId", invoiceID, "deals", closed)
	return closed
}

// paymentDate prefers the latest successful payment's date, then any
// payment's date, then now when payments are unreadable.
func (c *Coordinator) paymentDate(ctx context.Context, invoiceID string) string {
	rec, ok, err := crm.FindLatest(ctx, c.store, crm.Payments, crm.Eq("invoice", invoiceID), crm.Eq("status", "success"))
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	if ok && rec.String("payment_date") != "" {
		return rec.String("payment_date")
	}
	rec, ok, err = crm.FindLatest(ctx, c.store, crm.Payments, crm.Eq("invoice", invoiceID))
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	if ok {
		return rec.String("payment_date")
	}
	return ""
}

// DealRef is the deal context reachable from an invoice.
type DealRef struct {
	DealID     string
	ProposalID string
	ContactID  string
	PropertyID string
}

// ResolveFromInvoice follows the invoice's first proposal to its deal.
// Missing links yield a zero DealRef and no error.
func (c *Coordinator) ResolveFromInvoice(ctx context.Context, invoiceID string) (DealRef, error) {
	invoice, ok, err := crm.GetOptional(ctx, c.store, crm.Invoices, invoiceID, "id", "proposal", "contact")
	if err != nil || !ok {
		return DealRef{}, err
	}
	ref := DealRef{ContactID: invoice.String("contact")}
	proposalIDs := invoice.IDs("proposal")
	if len(proposalIDs) == 0 {
		return ref, nil
	}
	ref.ProposalID = proposalIDs[0]

	proposal, ok, err := crm.GetOptional(ctx, c.store, crm.Proposals, ref.ProposalID, "id", "deal", "contact")
	if err != nil || !ok {
		return ref, err
	}
	ref.DealID = proposal.String("deal")
	if ref.ContactID == "" {
		ref.ContactID = proposal.String("contact")
	}
	if ref.DealID == "" {
		return ref, nil
	}

	deal, ok, err := crm.GetOptional(ctx, c.store, crm.Deals, ref.DealID, "id", "contact", "property", "properties")
	if err != nil || !ok {
		return ref, err
	}
	ref.PropertyID = PropertyOf(deal)
	if ref.ContactID == "" {
		ref.ContactID = deal.String("contact")
	}
	return ref, nil
}

// PropertyOf returns the deal's primary property: the first of its
// properties, else its single property field.
func PropertyOf(deal crm.Record) string {
	if ids := deal.IDs("properties"); len(ids) > 0 {
		return ids[0]
	}
	return deal.String("property")
}
