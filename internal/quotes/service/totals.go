package service

import (
	"context"
	"strings"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/quotes/transport"
	"inspection_booking_backend/platform/apperr"
)

// UpdateTotal recomputes the proposal subtotal from the base price and the
// selected addons and stores it as quote_amount. The selection is copied onto
// the deal on a best-effort basis. Concurrent updates are last-write-wins.
func (s *Service) UpdateTotal(ctx context.Context, proposalID string, in transport.UpdateTotalInput) (transport.TotalBreakdown, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return transport.TotalBreakdown{}, apperr.Validation("proposal id is required")
	}
	log := s.log.WithContext(ctx)

	proposal, ok, err := crm.GetOptional(ctx, s.store, crm.Proposals, proposalID, "id", "deal", "inspection_amount", "quote_amount")
	if err != nil {
		return transport.TotalBreakdown{}, apperr.Upstream("failed to load proposal", err)
	}
	if !ok {
		return transport.TotalBreakdown{}, apperr.NotFound("proposal not found")
	}

	base := in.Base
	if base <= 0 {
		base = proposal.Float("inspection_amount")
	}

	addonIDs := uniqueIDs(in.AddonIDs)
	addonsTotal := 0.0
	if len(addonIDs) > 0 {
		addons, err := s.store.List(ctx, crm.Addons, crm.Query{
			Filters: []crm.Filter{crm.In("id", addonIDs)},
			Fields:  []string{"id", "price"},
			Limit:   len(addonIDs),
		})
		if err != nil {
			return transport.TotalBreakdown{}, apperr.Upstream("failed to load addon prices", err)
		}
		for _, addon := range addons {
			addonsTotal += addon.Float("price")
		}
	}

	rate := s.taxRates.Current(ctx)
	totals := billing.Compute(base+addonsTotal, rate, 0)

	if _, err := s.store.Patch(ctx, crm.Proposals, proposalID, map[string]any{"quote_amount": totals.Subtotal}); err != nil {
		return transport.TotalBreakdown{}, apperr.Upstream("failed to update proposal total", err)
	}

	if dealID := proposal.String("deal"); dealID != "" && len(addonIDs) > 0 {
		if _, err := s.store.Patch(ctx, crm.Deals, dealID, map[string]any{"addons": addonIDs}); err != nil {
			log.SideEffectFailed("store addon selection on deal", err, "dealId", dealID)
		}
	}

	return transport.TotalBreakdown{
		Base:        billing.Round2(base),
		AddonsTotal: billing.Round2(addonsTotal),
		Subtotal:    totals.Subtotal,
		TaxRate:     rate,
		TotalTax:    totals.TotalTax,
		Total:       totals.Total,
	}, nil
}

// Addons lists the addons offered by the proposal's service, marking the
// ones already selected on its deal.
func (s *Service) Addons(ctx context.Context, proposalID string) ([]transport.Addon, error) {
	proposal, ok, err := crm.GetOptional(ctx, s.store, crm.Proposals, strings.TrimSpace(proposalID), "id", "deal")
	if err != nil {
		return nil, apperr.Upstream("failed to load proposal", err)
	}
	if !ok {
		return nil, apperr.NotFound("proposal not found")
	}

	deal, ok, err := crm.GetOptional(ctx, s.store, crm.Deals, proposal.String("deal"), "id", "service", "addons")
	if err != nil {
		return nil, apperr.Upstream("failed to load deal", err)
	}
	if !ok || deal.String("service") == "" {
		return []transport.Addon{}, nil
	}

	svc, ok, err := crm.GetOptional(ctx, s.store, crm.Services, deal.String("service"), "id", "addons")
	if err != nil {
		return nil, apperr.Upstream("failed to load service", err)
	}
	offered := svc.IDs("addons")
	if !ok || len(offered) == 0 {
		return []transport.Addon{}, nil
	}

	recs, err := s.store.List(ctx, crm.Addons, crm.Query{Filters: []crm.Filter{crm.In("id", offered)}})
	if err != nil {
		return nil, apperr.Upstream("failed to load addons", err)
	}

	selected := make(map[string]bool)
	for _, id := range deal.IDs("addons") {
		selected[id] = true
	}
	out := make([]transport.Addon, 0, len(recs))
	for _, rec := range recs {
		name := rec.String("name")
		if name == "" {
			name = "Addon " + rec.ID()
		}
		out = append(out, transport.Addon{
			ID:       rec.ID(),
			Name:     name,
			Price:    rec.Float("price"),
			Selected: selected[rec.ID()],
		})
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
