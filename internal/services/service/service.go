// Package service reads the inspection service catalog from the CRM.
package service

import (
	"context"
	"strings"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/services/transport"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/logger"
)

const catalogLimit = 100

var serviceFields = []string{"id", "service_name", "service_type", "property_category", "addons"}

// Service provides the funnel's service catalog.
type Service struct {
	store crm.Store
	log   *logger.Logger
}

// New creates a new catalog service.
func New(store crm.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// List returns the services, optionally limited to one property category,
// ordered by name. Addons are not expanded.
func (s *Service) List(ctx context.Context, category string) (transport.ServiceListResponse, error) {
	q := crm.Query{
		Fields: serviceFields,
		Sort:   []string{"service_name"},
		Limit:  catalogLimit,
	}
	if category = strings.ToLower(strings.TrimSpace(category)); category != "" {
		q.Filters = []crm.Filter{crm.Eq("property_category", category)}
	}

	recs, err := s.store.List(ctx, crm.Services, q)
	if err != nil {
		s.log.WithContext(ctx).UpstreamError("crm", "list services", err)
		return transport.ServiceListResponse{}, apperr.Upstream("failed to list services", err)
	}
	items := make([]transport.ServiceResponse, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toResponse(rec))
	}
	return transport.ServiceListResponse{Items: items, Total: len(items)}, nil
}

// GetByID returns one service with its addons expanded.
func (s *Service) GetByID(ctx context.Context, id string) (transport.ServiceResponse, error) {
	rec, ok, err := crm.GetOptional(ctx, s.store, crm.Services, strings.TrimSpace(id), serviceFields...)
	if err != nil {
		return transport.ServiceResponse{}, apperr.Upstream("failed to load service", err)
	}
	if !ok {
		return transport.ServiceResponse{}, apperr.NotFound("service not found")
	}
	resp := toResponse(rec)

	offered := rec.IDs("addons")
	if len(offered) == 0 {
		return resp, nil
	}
	addons, err := s.store.List(ctx, crm.Addons, crm.Query{
		Filters: []crm.Filter{crm.In("id", offered)},
		Fields:  []string{"id", "name", "price"},
	})
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("load service addons", err, "serviceId", resp.ID)
		return resp, nil
	}
	resp.Addons = make([]transport.AddonResponse, 0, len(addons))
	for _, a := range addons {
		resp.Addons = append(resp.Addons, transport.AddonResponse{ID: a.ID(), Name: a.String("name"), Price: a.Float("price")})
	}
	return resp, nil
}

func toResponse(rec crm.Record) transport.ServiceResponse {
	return transport.ServiceResponse{
		ID:               rec.ID(),
		Name:             rec.String("service_name"),
		ServiceType:      rec.String("service_type"),
		PropertyCategory: rec.String("property_category"),
	}
}
