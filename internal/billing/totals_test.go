package billing

import (
	"context"
	"errors"
	"testing"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/platform/logger"
)

func TestComputeRoundsTaxAndTotal(t *testing.T) {
	got := Compute(500, 10, 0)
	if got.Subtotal != 500 || got.TotalTax != 50 || got.Total != 550 || got.AmountDue != 550 {
		t.Fatalf("unexpected totals %+v", got)
	}

	got = Compute(99.99, 10, 0)
	if got.TotalTax != 10 || got.Total != 109.99 {
		t.Fatalf("expected tax 10.00 and total 109.99, got %+v", got)
	}

	got = Compute(33.33, 7.5, 0)
	if got.TotalTax != 2.5 || got.Total != 35.83 {
		t.Fatalf("expected tax 2.50 and total 35.83, got %+v", got)
	}
}

func TestComputeAmountDueNeverNegative(t *testing.T) {
	got := Compute(500, 10, 600)
	if got.AmountDue != 0 {
		t.Fatalf("expected amount due 0 after overpayment, got %v", got.AmountDue)
	}
	if AmountDue(550, 550) != 0 {
		t.Fatalf("expected zero due when fully paid")
	}
	if got := AmountDue(550, 100.25); got != 449.75 {
		t.Fatalf("expected 449.75, got %v", got)
	}
}

func TestNormalizeSubtotalTreatsLargeIntegersAsCents(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{500, 500},
		{55000, 550},
		{1000.5, 1000.5},
		{-3, 0},
		{999, 999},
	}
	for _, tc := range cases {
		if got := NormalizeSubtotal(tc.in); got != tc.want {
			t.Fatalf("NormalizeSubtotal(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMinorUnitConversion(t *testing.T) {
	if ToMinorUnits(550) != 55000 {
		t.Fatalf("expected 55000 cents")
	}
	if ToMinorUnits(0.1+0.2) != 30 {
		t.Fatalf("expected float noise to round to 30 cents, got %d", ToMinorUnits(0.1+0.2))
	}
	if FromMinorUnits(55000) != 550 {
		t.Fatalf("expected 550.00")
	}
}

func TestPublicNumber(t *testing.T) {
	if PublicNumber("11") != "100011" {
		t.Fatalf("expected 100011, got %q", PublicNumber("11"))
	}
	if PublicNumber("abc-uuid") != "" {
		t.Fatalf("expected empty number for non-numeric id")
	}
}

func TestTaxRatesFallsBackWhenUnavailable(t *testing.T) {
	store := crmtest.New()
	rates := NewTaxRates(store, 0, logger.Nop())

	if got := rates.Current(context.Background()); got != DefaultTaxRatePct {
		t.Fatalf("expected default rate with no records, got %v", got)
	}

	store.Seed(crm.TaxRates, crm.Record{"rate": "12.5"})
	if got := rates.Current(context.Background()); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}

	store.FailOn("list", crm.TaxRates, errors.New("boom"))
	if got := rates.Current(context.Background()); got != DefaultTaxRatePct {
		t.Fatalf("expected fallback on error, got %v", got)
	}
}
