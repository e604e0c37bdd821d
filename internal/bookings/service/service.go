// Package service creates the booking for a paid invoice and links its
// contacts, agents and property.
package service

import (
	"context"
	"strings"

	"inspection_booking_backend/internal/bookings/transport"
	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/deals"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/internal/links"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	statusSubmitted   = "submitted"
	invoiceStatusPaid = "paid"
	dealContactsLimit = 100
)

// Service ensures exactly one booking per invoice public number.
type Service struct {
	store    crm.Store
	stages   *deals.Coordinator
	links    *links.Builder
	eventBus events.Bus
	log      *logger.Logger
}

// New creates the bookings service.
func New(store crm.Store, stages *deals.Coordinator, linkBuilder *links.Builder, log *logger.Logger) *Service {
	return &Service{store: store, stages: stages, links: linkBuilder, log: log}
}

// SetEventBus sets the event bus for publishing domain events.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

// EnsureBooking returns the booking keyed by the invoice's public number,
// creating it when absent. The invoice must be paid.
func (s *Service) EnsureBooking(ctx context.Context, in transport.EnsureBookingInput) (transport.Booking, error) {
	in = trimInput(in)
	if in.InvoiceID == "" {
		return transport.Booking{}, apperr.Validation("invoice id is required")
	}
	log := s.log.WithContext(ctx)

	invoice, ok, err := crm.GetOptional(ctx, s.store, crm.Invoices, in.InvoiceID, "id", "invoice_id", "status", "contact", "proposal")
	if err != nil {
		return transport.Booking{}, apperr.Upstream("failed to load invoice", err)
	}
	if !ok {
		return transport.Booking{}, apperr.NotFound("invoice not found")
	}
	if !strings.EqualFold(invoice.String("status"), invoiceStatusPaid) {
		return transport.Booking{}, apperr.Conflict("invoice is not paid")
	}

	publicID := invoice.String("invoice_id")
	if publicID == "" {
		publicID = in.InvoiceID
	}
	existing, ok, err := crm.FindLatest(ctx, s.store, crm.Bookings, crm.Eq("booking_id", publicID))
	if err != nil {
		return transport.Booking{}, apperr.Upstream("failed to look up booking", err)
	}
	if ok {
		return toBooking(existing, false), nil
	}

	in = s.resolve(ctx, in, invoice)
	if in.PropertyID == "" {
		return transport.Booking{}, apperr.Validation("property could not be resolved for invoice")
	}

	contacts := s.dealContacts(ctx, in.DealID)
	if in.ContactID != "" && !contains(contacts, in.ContactID) {
		contacts = append(contacts, in.ContactID)
	}

	payload := map[string]any{
		"booking_id": publicID,
		"status":     statusSubmitted,
	}
	if in.UserID != "" {
		payload["user"] = in.UserID
	}
	if len(contacts) > 0 {
		payload["contacts"] = contacts
	}
	created, err := s.store.Create(ctx, crm.Bookings, payload)
	if err != nil {
		return transport.Booking{}, apperr.Upstream("failed to create booking", err)
	}
	bookingID := created.ID()
	log.Info("booking created", "bookingId", bookingID, "publicId", publicID, "invoiceId", in.InvoiceID)

	link := s.links.Build(links.StepBooking, links.Params{
		UserID:     in.UserID,
		ContactID:  in.ContactID,
		DealID:     in.DealID,
		PropertyID: in.PropertyID,
		QuoteID:    in.QuoteID,
		InvoiceID:  in.InvoiceID,
		BookingID:  bookingID,
	})
	s.afterCreate(ctx, bookingID, link, in)

	booking := toBooking(created, true)
	booking.BookingLink = link
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.BookingCreated{
			BaseEvent:   events.NewBaseEvent(),
			BookingID:   bookingID,
			PublicID:    publicID,
			InvoiceID:   in.InvoiceID,
			ContactID:   in.ContactID,
			BookingLink: link,
		})
	}
	return booking, nil
}

// afterCreate runs the post-create steps. They touch different records and
// none of them can fail the booking.
func (s *Service) afterCreate(ctx context.Context, bookingID, link string, in transport.EnsureBookingInput) {
	log := s.log.WithContext(ctx)

	var g errgroup.Group
	g.Go(func() error {
		if _, err := s.store.Patch(ctx, crm.Bookings, bookingID, map[string]any{"booking_link": link}); err != nil {
			log.SideEffectFailed("patch booking link", err, "bookingId", bookingID)
		}
		return nil
	})
	g.Go(func() error {
		if in.DealID == "" {
			return nil
		}
		if _, err := s.store.Patch(ctx, crm.Deals, in.DealID, map[string]any{"booking": bookingID}); err != nil {
			log.SideEffectFailed("link booking to deal", err, "bookingId", bookingID, "dealId", in.DealID)
		}
		s.stages.Advance(ctx, in.DealID, deals.MilestoneBooked)
		return nil
	})
	g.Go(func() error {
		if err := s.linkAgents(ctx, bookingID, in.PropertyID); err != nil {
			log.SideEffectFailed("link booking agents", err, "bookingId", bookingID, "propertyId", in.PropertyID)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.linkProperty(ctx, bookingID, in.PropertyID); err != nil {
			log.SideEffectFailed("link booking property", err, "bookingId", bookingID, "propertyId", in.PropertyID)
		}
		return nil
	})
	_ = g.Wait()
}

// resolve fills blank deal, contact and property ids from the invoice chain.
func (s *Service) resolve(ctx context.Context, in transport.EnsureBookingInput, invoice crm.Record) transport.EnsureBookingInput {
	if in.ContactID == "" {
		in.ContactID = invoice.String("contact")
	}
	if in.DealID != "" && in.PropertyID == "" {
		deal, ok, err := crm.GetOptional(ctx, s.store, crm.Deals, in.DealID, "id", "property", "properties")
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed("load deal for booking", err, "dealId", in.DealID)
		} else if ok {
			in.PropertyID = deals.PropertyOf(deal)
		}
	}
	if in.DealID != "" && in.ContactID != "" && in.PropertyID != "" {
		return in
	}

	ref, err := s.stages.ResolveFromInvoice(ctx, in.InvoiceID)
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("resolve deal from invoice", err, "invoiceId", in.InvoiceID)
	}
	if in.DealID == "" {
		in.DealID = ref.DealID
	}
	if in.ContactID == "" {
		in.ContactID = ref.ContactID
	}
	if in.PropertyID == "" {
		in.PropertyID = ref.PropertyID
	}
	if in.QuoteID == "" {
		in.QuoteID = ref.ProposalID
	}
	return in
}

// dealContacts lists every contact joined to the deal. Failures yield none.
func (s *Service) dealContacts(ctx context.Context, dealID string) []string {
	if dealID == "" {
		return nil
	}
	rows, err := s.store.List(ctx, crm.DealContacts, crm.Query{
		Filters: []crm.Filter{crm.Eq("os_deals_id", dealID)},
		Fields:  []string{"contacts_id.id"},
		Limit:   dealContactsLimit,
	})
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("load deal contacts", err, "dealId", dealID)
		return nil
	}
	var ids []string
	for _, row := range rows {
		if id := row.String("contacts_id"); id != "" && !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func toBooking(rec crm.Record, created bool) transport.Booking {
	return transport.Booking{
		ID:          rec.ID(),
		PublicID:    rec.String("booking_id"),
		Status:      rec.String("status"),
		Contacts:    rec.IDs("contacts"),
		BookingLink: rec.String("booking_link"),
		Created:     created,
	}
}

func trimInput(in transport.EnsureBookingInput) transport.EnsureBookingInput {
	in.InvoiceID = strings.TrimSpace(in.InvoiceID)
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.ContactID = strings.TrimSpace(in.ContactID)
	in.DealID = strings.TrimSpace(in.DealID)
	in.QuoteID = strings.TrimSpace(in.QuoteID)
	return in
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
