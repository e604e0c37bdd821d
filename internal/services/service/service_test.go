package service

import (
	"context"
	"errors"
	"testing"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/platform/apperr"
	"inspection_booking_backend/platform/logger"
)

func seedCatalog(store *crmtest.Store) (building, strata string) {
	pool := store.Seed(crm.Addons, crm.Record{"name": "Pool", "price": "95"})
	store.Seed(crm.Addons, crm.Record{"name": "Termite", "price": 150})
	building = store.Seed(crm.Services, crm.Record{
		"service_name":      "Building",
		"service_type":      "pre_purchase",
		"property_category": "residential",
		"addons":            []any{pool},
	})
	strata = store.Seed(crm.Services, crm.Record{"service_name": "Strata", "property_category": "commercial"})
	return building, strata
}

func TestListFiltersByCategory(t *testing.T) {
	store := crmtest.New()
	building, _ := seedCatalog(store)
	svc := New(store, logger.Nop())

	all, err := svc.List(context.Background(), "")
	if err != nil || all.Total != 2 {
		t.Fatalf("expected two services, got %+v %v", all, err)
	}
	res, err := svc.List(context.Background(), " Residential ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != building || res.Items[0].Name != "Building" || res.Items[0].Addons != nil {
		t.Fatalf("unexpected list %+v", res)
	}
}

func TestGetByIDExpandsAddons(t *testing.T) {
	store := crmtest.New()
	building, strata := seedCatalog(store)
	svc := New(store, logger.Nop())

	got, err := svc.GetByID(context.Background(), building)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Addons) != 1 || got.Addons[0].Name != "Pool" || got.Addons[0].Price != 95 {
		t.Fatalf("unexpected addons %+v", got.Addons)
	}

	plain, err := svc.GetByID(context.Background(), strata)
	if err != nil || len(plain.Addons) != 0 {
		t.Fatalf("expected no addons, got %+v %v", plain, err)
	}

	if _, err := svc.GetByID(context.Background(), "404"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetByIDSurvivesAddonFailure(t *testing.T) {
	store := crmtest.New()
	building, _ := seedCatalog(store)
	store.FailOn("list", crm.Addons, errors.New("crm down"))

	got, err := New(store, logger.Nop()).GetByID(context.Background(), building)
	if err != nil || got.Name != "Building" || got.Addons != nil {
		t.Fatalf("expected the service without addons, got %+v %v", got, err)
	}
}

func TestListUpstreamFailure(t *testing.T) {
	store := crmtest.New()
	store.FailOn("list", crm.Services, errors.New("crm down"))
	if _, err := New(store, logger.Nop()).List(context.Background(), ""); !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
