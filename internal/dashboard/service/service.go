// Package service lists funnel records for the operator dashboard.
package service

import (
	"context"
	"sort"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/dashboard/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/logger"
)

const (
	defaultLimit = 25
	maxLimit     = 100
)

type resource struct {
	collection string
	fields     []string
}

var resources = map[string]resource{
	"deals": {crm.Deals, []string{
		"id", "name", "contact", "property", "service", "deal_stage", "deal_value", "close_date", "booking", "date_created",
	}},
	"contacts": {crm.Contacts, []string{
		"id", "first_name", "last_name", "email", "phone", "status", "date_created",
	}},
	"properties": {crm.Properties, []string{
		"id", "street_address", "suburb", "state", "post_code", "property_category", "date_created",
	}},
	"quotes": {crm.Proposals, []string{
		"id", "name", "deal", "contact", "status", "quote_amount", "inspection_amount", "quote_id", "expiration_date", "date_created",
	}},
	"invoices": {crm.Invoices, []string{
		"id", "invoice_id", "contact", "proposal", "subtotal", "total_tax", "total", "amount_paid", "amount_due", "status", "due_date", "date_created",
	}},
	"payments": {crm.Payments, []string{
		"id", "payment_id", "invoice", "contact", "amount", "status", "failure_reason", "stripe_payment_id", "payment_date", "date_created",
	}},
	"bookings": {crm.Bookings, []string{
		"id", "booking_id", "status", "contacts", "booking_link", "date_created",
	}},
}

// Resources returns the listable resource names in sorted order.
func Resources() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service is a read-only window onto the CRM.
type Service struct {
	store crm.Store
	log   *logger.Logger
}

// New creates the dashboard service.
func New(store crm.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// List returns one page of the named resource, newest first.
func (s *Service) List(ctx context.Context, name string, in transport.ListInput) (transport.ListResult, error) {
	res, ok := resources[name]
	if !ok {
		return transport.ListResult{}, apperr.NotFound("unknown resource")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}

	items, err := s.store.List(ctx, res.collection, crm.Query{
		Fields: res.fields,
		Sort:   []string{crm.NewestFirst},
		Limit:  limit,
		Page:   page,
	})
	if err != nil {
		s.log.WithContext(ctx).UpstreamError("crm", "list "+name, err)
		return transport.ListResult{}, apperr.Upstream("failed to list "+name, err)
	}
	s.log.WithContext(ctx).Debug("dashboard listing", "resource", name, "viewer", in.Viewer, "page", page, "count", len(items))
	if items == nil {
		items = []crm.Record{}
	}
	return transport.ListResult{Items: items, Limit: limit, Page: page}, nil
}
