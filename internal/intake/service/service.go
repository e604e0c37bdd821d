// Package service opens deals from the contact step, attaches the property
// and gates the quote behind phone verification.
package service

import (
	"context"
	"strconv"
	"strings"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/intake/client"
	"inspection_booking_backend/internal/intake/transport"
	quotes "inspection_booking_backend/internal/quotes/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/phone"
	"inspection_booking_backend/platform/sanitize"
)

const (
	statusPublished     = "published"
	categoryResidential = "residential"
	categoryCommercial  = "commercial"

	maxNameLength    = 100
	maxAddressLength = 200
)

// ProposalEnsurer resolves or creates the deal's proposal once the phone is
// verified.
type ProposalEnsurer interface {
	EnsureProposal(ctx context.Context, in quotes.EnsureProposalInput) (quotes.Proposal, error)
}

// Service implements the steps before the quote.
type Service struct {
	store     crm.Store
	stages    *deals.Coordinator
	verifier  client.Verifier
	proposals ProposalEnsurer
	cfg       config.IntakeConfig
	log       *logger.Logger
}

// New creates the intake service.
func New(store crm.Store, stages *deals.Coordinator, verifier client.Verifier, proposals ProposalEnsurer, cfg config.IntakeConfig, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		stages:    stages,
		verifier:  verifier,
		proposals: proposals,
		cfg:       cfg,
		log:       log,
	}
}

// StartDeal saves the contact, reusing one with the same email, and opens a
// deal for the chosen service at stage New. A known deal id is reused.
func (s *Service) StartDeal(ctx context.Context, in transport.StartDealInput) (transport.StartDealResult, error) {
	log := s.log.WithContext(ctx)

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = sanitize.Truncate(in.FirstName, maxNameLength)
	in.LastName = sanitize.Truncate(in.LastName, maxNameLength)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	if !phone.IsValid(in.Phone) {
		return transport.StartDealResult{}, apperr.Validation("phone is not valid")
	}
	in.Phone = phone.NormalizeE164(in.Phone)

	service, ok, err := crm.GetOptional(ctx, s.store, crm.Services, in.ServiceID, "id", "service_name", "property_category")
	if err != nil {
		return transport.StartDealResult{}, apperr.Upstream("failed to load service", err)
	}
	if !ok {
		return transport.StartDealResult{}, apperr.Validation("unknown service")
	}

	contactID, err := s.saveContact(ctx, in)
	if err != nil {
		return transport.StartDealResult{}, err
	}
	result := transport.StartDealResult{ContactID: contactID, Phone: in.Phone}

	if id := strings.TrimSpace(in.DealID); id != "" {
		_, found, err := crm.GetOptional(ctx, s.store, crm.Deals, id, "id")
		if err != nil {
			return transport.StartDealResult{}, apperr.Upstream("failed to load deal", err)
		}
		if found {
			if _, err := s.store.Patch(ctx, crm.Deals, id, map[string]any{"contact": contactID, "service": in.ServiceID}); err != nil {
				log.SideEffectFailed("update deal service", err, "dealId", id)
			}
			result.DealID = id
			return result, nil
		}
	}

	payload := map[string]any{
		"name":      dealName(service.String("service_name"), s.cfg.GetDealName()),
		"deal_type": dealType(service.String("property_category")),
		"contact":   contactID,
		"service":   in.ServiceID,
	}
	if owner := s.cfg.GetDealOwnerID(); owner != "" {
		payload["owner"] = owner
	}
	if stage := s.stages.StageID(ctx, deals.MilestoneNew); stage != "" {
		payload["deal_stage"] = stage
	}
	if in.UserID != "" {
		payload["user"] = in.UserID
	}
	deal, err := s.store.Create(ctx, crm.Deals, payload)
	if err != nil {
		return transport.StartDealResult{}, apperr.Upstream("failed to create deal", err)
	}
	result.DealID = deal.ID()
	result.DealCreated = true

	if _, err := s.store.Create(ctx, crm.DealContacts, map[string]any{
		"os_deals_id": result.DealID,
		"contacts_id": contactID,
	}); err != nil {
		log.SideEffectFailed("link contact to deal", err, "dealId", result.DealID, "contactId", contactID)
	}

	log.Info("deal opened", "dealId", result.DealID, "contactId", contactID, "serviceId", in.ServiceID)
	return result, nil
}

// saveContact updates the contact named by id or email, else creates one.
// Email is never rewritten on an existing contact.
func (s *Service) saveContact(ctx context.Context, in transport.StartDealInput) (string, error) {
	details := map[string]any{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"phone":      in.Phone,
	}

	existingID := ""
	if id := strings.TrimSpace(in.ContactID); id != "" {
		_, ok, err := crm.GetOptional(ctx, s.store, crm.Contacts, id, "id")
		if err != nil {
			return "", apperr.Upstream("failed to load contact", err)
		}
		if ok {
			existingID = id
		}
	}
	if existingID == "" {
		rec, ok, err := crm.FindLatest(ctx, s.store, crm.Contacts, crm.Eq("email", in.Email))
		if err != nil {
			return "", apperr.Upstream("failed to look up contact", err)
		}
		if ok {
			existingID = rec.ID()
		}
	}

	if existingID != "" {
		if _, err := s.store.Patch(ctx, crm.Contacts, existingID, details); err != nil {
			return "", apperr.Upstream("failed to update contact", err)
		}
		return existingID, nil
	}

	details["email"] = in.Email
	details["status"] = statusPublished
	created, err := s.store.Create(ctx, crm.Contacts, details)
	if err != nil {
		return "", apperr.Upstream("failed to create contact", err)
	}
	return created.ID(), nil
}

// AttachProperty records the property to inspect on the deal. A deal that
// already has a property gets it updated instead of a second one.
func (s *Service) AttachProperty(ctx context.Context, dealID string, in transport.PropertyInput) (transport.PropertyResult, error) {
	dealID = strings.TrimSpace(dealID)
	deal, ok, err := crm.GetOptional(ctx, s.store, crm.Deals, dealID, "id", "contact", "property", "properties")
	if err != nil {
		return transport.PropertyResult{}, apperr.Upstream("failed to load deal", err)
	}
	if !ok {
		return transport.PropertyResult{}, apperr.NotFound("deal not found")
	}

	attrs := propertyPayload(in)
	if existing := deals.PropertyOf(deal); existing != "" {
		if _, err := s.store.Patch(ctx, crm.Properties, existing, attrs); err != nil {
			return transport.PropertyResult{}, apperr.Upstream("failed to update property", err)
		}
		return transport.PropertyResult{PropertyID: existing, DealID: dealID}, nil
	}

	attrs["status"] = statusPublished
	if contact := deal.String("contact"); contact != "" {
		attrs["contact"] = contact
	}
	created, err := s.store.Create(ctx, crm.Properties, attrs)
	if err != nil {
		return transport.PropertyResult{}, apperr.Upstream("failed to create property", err)
	}
	propertyID := created.ID()

	properties := append(deal.IDs("properties"), propertyID)
	if _, err := s.store.Patch(ctx, crm.Deals, dealID, map[string]any{
		"property":   propertyID,
		"properties": properties,
	}); err != nil {
		return transport.PropertyResult{}, apperr.Upstream("failed to link property to deal", err)
	}

	s.log.WithContext(ctx).Info("property attached", "dealId", dealID, "propertyId", propertyID)
	return transport.PropertyResult{PropertyID: propertyID, DealID: dealID, Created: true}, nil
}

// SendCode sends a verification code to an AU mobile number.
func (s *Service) SendCode(ctx context.Context, rawPhone string) (transport.SendCodeResult, error) {
	if !phone.IsMobile(rawPhone) {
		return transport.SendCodeResult{}, apperr.Validation("phone must be an Australian mobile number")
	}
	to := phone.NormalizeE164(rawPhone)

	if err := s.verifier.Send(ctx, to); err != nil {
		s.log.WithContext(ctx).UpstreamError("verify", "send code", err)
		return transport.SendCodeResult{}, apperr.Upstream("failed to send code", err)
	}
	result := transport.SendCodeResult{Phone: to}
	if sb, ok := s.verifier.(*client.Sandbox); ok {
		result.SandboxCode = sb.Code()
	}
	return result, nil
}

// CheckCode verifies the code. On approval the contact is published and the
// deal's proposal is ensured so the caller can continue to the quote.
func (s *Service) CheckCode(ctx context.Context, in transport.CheckCodeInput) (transport.CheckCodeResult, error) {
	log := s.log.WithContext(ctx)

	if !phone.IsMobile(in.Phone) {
		return transport.CheckCodeResult{}, apperr.Validation("phone must be an Australian mobile number")
	}
	code := strings.TrimSpace(in.Code)
	if !validCode(code) {
		return transport.CheckCodeResult{}, apperr.Validation("enter the code we sent you")
	}

	approved, err := s.verifier.Check(ctx, phone.NormalizeE164(in.Phone), code)
	if err != nil {
		log.UpstreamError("verify", "check code", err)
		return transport.CheckCodeResult{}, apperr.Validation("invalid or expired code")
	}
	if !approved {
		return transport.CheckCodeResult{}, apperr.Validation("invalid or expired code")
	}

	contactID := strings.TrimSpace(in.ContactID)
	if contactID != "" {
		if _, err := s.store.Patch(ctx, crm.Contacts, contactID, map[string]any{"status": statusPublished}); err != nil {
			log.SideEffectFailed("publish contact", err, "contactId", contactID)
		}
	}

	result := transport.CheckCodeResult{Approved: true, DealID: strings.TrimSpace(in.DealID), PropertyID: strings.TrimSpace(in.PropertyID)}
	if result.DealID == "" && contactID == "" {
		return result, nil
	}
	proposal, err := s.proposals.EnsureProposal(ctx, quotes.EnsureProposalInput{
		DealID:     result.DealID,
		ContactID:  contactID,
		PropertyID: result.PropertyID,
	})
	if err != nil {
		log.SideEffectFailed("ensure proposal after verification", err, "dealId", result.DealID, "contactId", contactID)
		return result, nil
	}
	result.DealID = proposal.DealID
	result.QuoteID = proposal.ID
	result.QuoteLink = proposal.QuoteLink
	return result, nil
}

func propertyPayload(in transport.PropertyInput) map[string]any {
	category := in.PropertyCategory
	if category == "" {
		category = categoryResidential
	}
	attrs := map[string]any{
		"street_address":      sanitize.Truncate(in.StreetAddress, maxAddressLength),
		"suburb":              sanitize.Truncate(in.Suburb, maxAddressLength),
		"state":               strings.ToUpper(strings.TrimSpace(in.State)),
		"post_code":           strings.TrimSpace(in.PostCode),
		"property_category":   category,
		"number_of_bedrooms":  in.Bedrooms,
		"number_of_bathrooms": in.Bathrooms,
		"number_of_levels":    in.Levels,
		"basement":            in.Basement,
	}
	if unit := sanitize.Truncate(in.UnitNumber, maxAddressLength); unit != "" {
		attrs["unit_number"] = unit
	}
	if kind := sanitize.Text(in.PropertyType); kind != "" {
		attrs["property_type"] = kind
	}
	return attrs
}

func dealName(serviceName, base string) string {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return base
	}
	return serviceName + " " + base
}

func dealType(category string) string {
	if strings.EqualFold(strings.TrimSpace(category), categoryCommercial) {
		return categoryCommercial
	}
	return categoryResidential
}

func validCode(code string) bool {
	if len(code) < 4 || len(code) > 8 {
		return false
	}
	_, err := strconv.ParseUint(code, 10, 64)
	return err == nil
}
