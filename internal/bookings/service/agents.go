package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inspection_booking_backend/internal/crm"

	"golang.org/x/sync/errgroup"
)

const (
	agentLookupLimit   = 100
	existingLinksLimit = 500
)

// agentTables are the two generations of the agent to property join table.
// Either may hold a given link, so both are always read.
var agentTables = [...]string{crm.AgentsPropertyLegacy, crm.PropertyAgentsLegacy}

// ResolveAgentsForProperty returns the agents linked to propertyID in either
// join table, de-duplicated in table order. It fails only when no table could
// be read.
func (s *Service) ResolveAgentsForProperty(ctx context.Context, propertyID string) ([]string, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, nil
	}

	var (
		results [len(agentTables)][]string
		errs    [len(agentTables)]error
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range agentTables {
		g.Go(func() error {
			rows, err := s.store.List(gctx, table, crm.Query{
				Filters: []crm.Filter{crm.Eq("property_id", propertyID)},
				Fields:  []string{"agents_id"},
				Limit:   agentLookupLimit,
			})
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", table, err)
				return nil
			}
			for _, row := range rows {
				if id := row.String("agents_id"); id != "" {
					results[i] = append(results[i], id)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs[0] != nil && errs[1] != nil {
		return nil, errors.Join(errs[:]...)
	}
	for _, err := range errs {
		if err != nil {
			s.log.WithContext(ctx).SideEffectFailed("read agent join table", err, "propertyId", propertyID)
		}
	}

	seen := make(map[string]bool)
	var agents []string
	for _, ids := range results {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				agents = append(agents, id)
			}
		}
	}
	return agents, nil
}

// linkAgents inserts a bookings_agents row for every property agent not yet
// linked to the booking.
func (s *Service) linkAgents(ctx context.Context, bookingID, propertyID string) error {
	agents, err := s.ResolveAgentsForProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("resolve agents: %w", err)
	}
	if len(agents) == 0 {
		return nil
	}

	existing, err := s.linked(ctx, crm.BookingAgents, bookingID, "agents_id")
	if err != nil {
		return err
	}
	var failed []error
	for _, agentID := range agents {
		if existing[agentID] {
			continue
		}
		if _, err := s.store.Create(ctx, crm.BookingAgents, map[string]any{
			"agents_id":   agentID,
			"bookings_id": bookingID,
		}); err != nil {
			failed = append(failed, fmt.Errorf("agent %s: %w", agentID, err))
		}
	}
	return errors.Join(failed...)
}

// linkProperty inserts the bookings_property row unless it exists.
func (s *Service) linkProperty(ctx context.Context, bookingID, propertyID string) error {
	if propertyID == "" {
		return nil
	}
	existing, err := s.linked(ctx, crm.BookingProperty, bookingID, "property_id")
	if err != nil {
		return err
	}
	if existing[propertyID] {
		return nil
	}
	_, err = s.store.Create(ctx, crm.BookingProperty, map[string]any{
		"property_id": propertyID,
		"bookings_id": bookingID,
	})
	return err
}

// linked returns the set of field values already joined to bookingID.
func (s *Service) linked(ctx context.Context, table, bookingID, field string) (map[string]bool, error) {
	rows, err := s.store.List(ctx, table, crm.Query{
		Filters: []crm.Filter{crm.Eq("bookings_id", bookingID)},
		Fields:  []string{field},
		Limit:   existingLinksLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		set[row.String(field)] = true
	}
	return set, nil
}
