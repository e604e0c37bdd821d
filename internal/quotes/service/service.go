// Package service implements proposal resolution, creation and total updates.
package service

import (
	"context"
	"strings"
	"time"

	"inspection_booking_backend/internal/billing"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/internal/links"
	pricing "inspection_booking_backend/internal/pricing/transport"
	"inspection_booking_backend/internal/quotes/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

const (
	defaultNote       = "Proposal subject to confirmation. Final terms will be outlined in the agreement."
	defaultExpiryDays = 7
	defaultCategory   = "residential"
)

// Estimator prices a service for a property. It never fails.
type Estimator interface {
	Estimate(ctx context.Context, serviceCode string, attrs pricing.PropertyAttributes) pricing.Estimate
}

// Service resolves and creates proposals. At most one proposal per deal is
// created through it: every path looks up before it creates.
type Service struct {
	store     crm.Store
	stages    *deals.Coordinator
	estimator Estimator
	taxRates  *billing.TaxRates
	links     *links.Builder
	cfg       config.ProposalConfig
	eventBus  events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates the quotes service.
func New(store crm.Store, stages *deals.Coordinator, estimator Estimator, taxRates *billing.TaxRates, linkBuilder *links.Builder, cfg config.ProposalConfig, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		stages:    stages,
		estimator: estimator,
		taxRates:  taxRates,
		links:     linkBuilder,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// SetEventBus sets the event bus for publishing domain events.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

// EnsureProposal returns the proposal identified by in, falling back from the
// explicit id to the deal's latest proposal, then to the contact's latest
// deal. When nothing exists a proposal is created for the resolved deal.
func (s *Service) EnsureProposal(ctx context.Context, in transport.EnsureProposalInput) (transport.Proposal, error) {
	in = trimInput(in)

	if in.ProposalID != "" {
		rec, ok, err := crm.GetOptional(ctx, s.store, crm.Proposals, in.ProposalID)
		if err != nil {
			return transport.Proposal{}, apperr.Upstream("failed to load proposal", err)
		}
		if ok {
			return toProposal(rec, false), nil
		}
		s.log.WithContext(ctx).Warn("proposal id not found, resolving from deal", "proposalId", in.ProposalID)
	}

	dealID := in.DealID
	if dealID == "" && in.ContactID != "" {
		deal, ok, err := crm.FindLatest(ctx, s.store, crm.Deals, crm.Eq("contact", in.ContactID))
		if err != nil {
			return transport.Proposal{}, apperr.Upstream("failed to resolve deal for contact", err)
		}
		if ok {
			dealID = deal.ID()
		}
	}
	if dealID == "" {
		return transport.Proposal{}, apperr.Validation("a deal id, or a contact with a deal, is required")
	}

	rec, ok, err := crm.FindLatest(ctx, s.store, crm.Proposals, crm.Eq("deal", dealID))
	if err != nil {
		return transport.Proposal{}, apperr.Upstream("failed to look up proposals", err)
	}
	if ok {
		return toProposal(rec, false), nil
	}

	in.DealID = dealID
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in transport.EnsureProposalInput) (transport.Proposal, error) {
	log := s.log.WithContext(ctx)

	s.stages.Advance(ctx, in.DealID, deals.MilestoneQuoteSubmitted)

	deal, ok, err := crm.GetOptional(ctx, s.store, crm.Deals, in.DealID)
	if err != nil {
		return transport.Proposal{}, apperr.Upstream("failed to load deal", err)
	}
	if !ok {
		return transport.Proposal{}, apperr.NotFound("deal not found")
	}

	contactID := in.ContactID
	if contactID == "" {
		contactID = deal.String("contact")
	}
	propertyID := in.PropertyID
	if propertyID == "" {
		propertyID = deals.PropertyOf(deal)
	}

	estimate := s.estimate(ctx, deal, propertyID)
	note := estimate.Note
	if note == "" {
		note = defaultNote
	}
	amount := billing.Round2(estimate.Price)

	payload := map[string]any{
		"name":              s.cfg.GetProposalName(),
		"deal":              in.DealID,
		"status":            s.cfg.GetProposalStatus(),
		"expiration_date":   s.expiry().Format(time.RFC3339),
		"note":              note,
		"quote_amount":      amount,
		"inspection_amount": amount,
	}
	if contactID != "" {
		payload["contact"] = contactID
	}
	if in.UserID != "" {
		payload["user"] = in.UserID
	}

	created, err := s.store.Create(ctx, crm.Proposals, payload)
	if err != nil {
		return transport.Proposal{}, apperr.Upstream("failed to create proposal", err)
	}
	proposalID := created.ID()
	log.Info("proposal created", "proposalId", proposalID, "dealId", in.DealID, "amount", amount, "degradedPrice", estimate.Degraded)

	link := s.links.Build(links.StepQuote, links.Params{
		ContactID:  contactID,
		DealID:     in.DealID,
		PropertyID: propertyID,
		QuoteID:    proposalID,
	})
	patch := map[string]any{"quote_link": link}
	if number := billing.PublicNumber(proposalID); number != "" {
		patch["quote_id"] = number
	}
	if _, err := s.store.Patch(ctx, crm.Proposals, proposalID, patch); err != nil {
		log.SideEffectFailed("patch proposal link", err, "proposalId", proposalID)
	} else {
		for k, v := range patch {
			created[k] = v
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ProposalCreated{
			BaseEvent:  events.NewBaseEvent(),
			ProposalID: proposalID,
			DealID:     in.DealID,
			ContactID:  contactID,
			Amount:     amount,
		})
	}

	return toProposal(created, true), nil
}

// estimate prices the deal's service for its property. Missing records only
// narrow the attributes sent; the estimator itself degrades to zero.
func (s *Service) estimate(ctx context.Context, deal crm.Record, propertyID string) pricing.Estimate {
	log := s.log.WithContext(ctx)

	serviceCode := ""
	if serviceID := deal.String("service"); serviceID != "" {
		svc, ok, err := crm.GetOptional(ctx, s.store, crm.Services, serviceID, "id", "service_name", "service_type")
		if err != nil {
			log.SideEffectFailed("load service for estimate", err, "serviceId", serviceID)
		} else if ok {
			serviceCode = svc.String("service_type")
			if serviceCode == "" {
				serviceCode = svc.String("service_name")
			}
		}
	}

	attrs := pricing.PropertyAttributes{PropertyCategory: defaultCategory}
	if propertyID != "" {
		prop, ok, err := crm.GetOptional(ctx, s.store, crm.Properties, propertyID)
		if err != nil {
			log.SideEffectFailed("load property for estimate", err, "propertyId", propertyID)
		} else if ok {
			attrs = PropertyAttributes(prop)
		}
	}

	return s.estimator.Estimate(ctx, serviceCode, attrs)
}

// PropertyAttributes maps a CRM property record onto the rate engine inputs.
func PropertyAttributes(prop crm.Record) pricing.PropertyAttributes {
	category := prop.String("property_category")
	if category == "" {
		category = defaultCategory
	}
	return pricing.PropertyAttributes{
		PropertyCategory: category,
		Bedrooms:         int(prop.Float("number_of_bedrooms")),
		Bathrooms:        int(prop.Float("number_of_bathrooms")),
		Levels:           int(prop.Float("number_of_levels")),
		Basement:         prop.Bool("basement"),
	}
}

func (s *Service) expiry() time.Time {
	days := s.cfg.GetProposalExpiryDays()
	if days < 1 {
		days = defaultExpiryDays
	}
	return s.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
}

func trimInput(in transport.EnsureProposalInput) transport.EnsureProposalInput {
	in.ProposalID = strings.TrimSpace(in.ProposalID)
	in.DealID = strings.TrimSpace(in.DealID)
	in.ContactID = strings.TrimSpace(in.ContactID)
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.UserID = strings.TrimSpace(in.UserID)
	return in
}

func toProposal(rec crm.Record, created bool) transport.Proposal {
	return transport.Proposal{
		ID:               rec.ID(),
		QuoteID:          rec.String("quote_id"),
		DealID:           rec.String("deal"),
		ContactID:        rec.String("contact"),
		Status:           rec.String("status"),
		QuoteAmount:      rec.Float("quote_amount"),
		InspectionAmount: rec.Float("inspection_amount"),
		Note:             rec.String("note"),
		ExpirationDate:   rec.String("expiration_date"),
		QuoteLink:        rec.String("quote_link"),
		Created:          created,
	}
}
