package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/links"
	pricing "inspection_booking_backend/internal/pricing/transport"
	"inspection_booking_backend/internal/quotes/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

type fakeEstimator struct {
	calls    int
	lastCode string
	lastAttr pricing.PropertyAttributes
	price    float64
}

func (f *fakeEstimator) Estimate(_ context.Context, code string, attrs pricing.PropertyAttributes) pricing.Estimate {
	f.calls++
	f.lastCode = code
	f.lastAttr = attrs
	return pricing.Estimate{Price: f.price, Note: "engine note"}
}

func newTestService(store *crmtest.Store, est *fakeEstimator) *Service {
	cfg := &config.Config{
		ProposalName:          "Inspection proposal",
		ProposalStatus:        "pending",
		ProposalExpiryDays:    14,
		StageQuoteSubmittedID: "s-quote",
		AppBaseURL:            "https://book.example.com/",
	}
	log := logger.Nop()
	return New(store,
		deals.NewCoordinator(store, cfg, nil, log),
		est,
		billing.NewTaxRates(store, 10, log),
		links.NewBuilder(cfg),
		cfg,
		log,
	)
}

func seedDeal(store *crmtest.Store) (dealID, contactID, propertyID string) {
	serviceID := store.Seed(crm.Services, crm.Record{"service_name": "Pre Purchase", "service_type": "pre-purchase"})
	propertyID = store.Seed(crm.Properties, crm.Record{
		"property_category":   "residential",
		"number_of_bedrooms":  "3",
		"number_of_bathrooms": "2",
		"number_of_levels":    "1",
		"basement":            true,
	})
	contactID = store.Seed(crm.Contacts, crm.Record{"first_name": "Ada"})
	dealID = store.Seed(crm.Deals, crm.Record{
		"contact":    contactID,
		"service":    serviceID,
		"properties": []any{propertyID},
	})
	return dealID, contactID, propertyID
}

func TestEnsureProposalCreatesOnceAndReuses(t *testing.T) {
	store := crmtest.New()
	est := &fakeEstimator{price: 500}
	svc := newTestService(store, est)
	dealID, contactID, propertyID := seedDeal(store)
	ctx := context.Background()

	first, err := svc.EnsureProposal(ctx, transport.EnsureProposalInput{DealID: dealID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected a new proposal")
	}
	if first.QuoteAmount != 500 || first.ContactID != contactID {
		t.Fatalf("unexpected proposal %+v", first)
	}
	if est.lastCode != "pre-purchase" || est.lastAttr.Bedrooms != 3 || !est.lastAttr.Basement {
		t.Fatalf("estimate called with %q %+v", est.lastCode, est.lastAttr)
	}

	stored := store.Record(crm.Proposals, first.ID)
	if stored.String("quote_id") != billing.PublicNumber(first.ID) {
		t.Fatalf("expected public number on proposal, got %q", stored.String("quote_id"))
	}
	wantLink := "https://book.example.com/steps/04-quote?contactId=" + contactID + "&dealId=" + dealID + "&propertyId=" + propertyID + "&quoteId=" + first.ID
	if stored.String("quote_link") != wantLink {
		t.Fatalf("quote link = %q, want %q", stored.String("quote_link"), wantLink)
	}
	if store.Record(crm.Deals, dealID).String("deal_stage") != "s-quote" {
		t.Fatalf("expected deal moved to quote submitted")
	}

	second, err := svc.EnsureProposal(ctx, transport.EnsureProposalInput{DealID: dealID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created || second.ID != first.ID {
		t.Fatalf("expected reuse of %s, got %+v", first.ID, second)
	}
	if store.Creates(crm.Proposals) != 1 {
		t.Fatalf("expected exactly one proposal create, got %d", store.Creates(crm.Proposals))
	}
}

func TestEnsureProposalResolvesFromContactOnly(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{price: 300})
	dealID, contactID, _ := seedDeal(store)
	existing := store.Seed(crm.Proposals, crm.Record{"deal": dealID, "quote_amount": "300"})

	got, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{ContactID: contactID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != existing || got.Created {
		t.Fatalf("expected existing proposal %s, got %+v", existing, got)
	}
	if store.Creates(crm.Proposals) != 0 {
		t.Fatalf("expected no create")
	}
}

func TestEnsureProposalCreatesFromContactWhenDealHasNone(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{price: 420})
	dealID, contactID, _ := seedDeal(store)

	got, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{ContactID: contactID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Created || got.DealID != dealID {
		t.Fatalf("expected created proposal on deal %s, got %+v", dealID, got)
	}
}

func TestEnsureProposalExplicitIDWins(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{})
	dealID, _, _ := seedDeal(store)
	older := store.Seed(crm.Proposals, crm.Record{"deal": dealID})
	store.Seed(crm.Proposals, crm.Record{"deal": dealID})

	got, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{ProposalID: older, DealID: dealID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != older {
		t.Fatalf("expected explicit proposal %s, got %s", older, got.ID)
	}
}

func TestEnsureProposalRequiresDeal(t *testing.T) {
	svc := newTestService(crmtest.New(), &fakeEstimator{})

	_, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{ContactID: "77"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnsureProposalFailsWhenCreateFails(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{})
	dealID, _, _ := seedDeal(store)
	store.FailOn("create", crm.Proposals, errors.New("crm down"))

	_, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{DealID: dealID})
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestEnsureProposalSurvivesLinkPatchFailure(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{price: 100})
	dealID, _, _ := seedDeal(store)
	store.FailOn("patch", crm.Proposals, errors.New("crm down"))

	got, err := svc.EnsureProposal(context.Background(), transport.EnsureProposalInput{DealID: dealID})
	if err != nil {
		t.Fatalf("expected link failure to be tolerated, got %v", err)
	}
	if got.QuoteLink != "" {
		t.Fatalf("expected no link after failed patch, got %q", got.QuoteLink)
	}
}

func TestUpdateTotalAddsAddonsAndTax(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{})
	dealID, _, _ := seedDeal(store)
	proposalID := store.Seed(crm.Proposals, crm.Record{"deal": dealID, "inspection_amount": "400"})
	a1 := store.Seed(crm.Addons, crm.Record{"name": "Pool", "price": "60"})
	a2 := store.Seed(crm.Addons, crm.Record{"name": "Shed", "price": "40"})

	got, err := svc.UpdateTotal(context.Background(), proposalID, transport.UpdateTotalInput{AddonIDs: []string{a1, a2, a1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Base != 400 || got.AddonsTotal != 100 || got.Subtotal != 500 || got.TotalTax != 50 || got.Total != 550 {
		t.Fatalf("unexpected breakdown %+v", got)
	}
	if store.Record(crm.Proposals, proposalID).Float("quote_amount") != 500 {
		t.Fatalf("expected quote_amount 500")
	}
	addons := store.Record(crm.Deals, dealID).IDs("addons")
	if strings.Join(addons, ",") != a1+","+a2 {
		t.Fatalf("expected deduplicated addons on deal, got %v", addons)
	}
}

func TestUpdateTotalUnknownProposal(t *testing.T) {
	svc := newTestService(crmtest.New(), &fakeEstimator{})

	_, err := svc.UpdateTotal(context.Background(), "404", transport.UpdateTotalInput{Base: 10})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddonsMarksSelection(t *testing.T) {
	store := crmtest.New()
	svc := newTestService(store, &fakeEstimator{})
	a1 := store.Seed(crm.Addons, crm.Record{"name": "Pool", "price": "60"})
	a2 := store.Seed(crm.Addons, crm.Record{"price": "40"})
	serviceID := store.Seed(crm.Services, crm.Record{"addons": []any{a1, a2}})
	dealID := store.Seed(crm.Deals, crm.Record{"service": serviceID, "addons": []any{a2}})
	proposalID := store.Seed(crm.Proposals, crm.Record{"deal": dealID})

	got, err := svc.Addons(context.Background(), proposalID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addons, got %d", len(got))
	}
	if got[0].Selected || !got[1].Selected || got[1].Name != "Addon "+a2 {
		t.Fatalf("unexpected addons %+v", got)
	}
}
