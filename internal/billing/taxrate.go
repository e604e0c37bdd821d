package billing

import (
	"context"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/platform/logger"
)

// DefaultTaxRatePct is used when no tax rate record is readable.
const DefaultTaxRatePct = 10.0

// TaxRates reads the current tax percentage from the CRM.
type TaxRates struct {
	store    crm.Store
	fallback float64
	log      *logger.Logger
}

// NewTaxRates creates a reader. A non-positive fallback means DefaultTaxRatePct.
func NewTaxRates(store crm.Store, fallback float64, log *logger.Logger) *TaxRates {
	if fallback <= 0 {
		fallback = DefaultTaxRatePct
	}
	return &TaxRates{store: store, fallback: fallback, log: log}
}

// Current returns the most recently updated rate, or the fallback.
func (t *TaxRates) Current(ctx context.Context) float64 {
	recs, err := t.store.List(ctx, crm.TaxRates, crm.Query{
		Fields: []string{"rate"},
		Sort:   []string{"-date_updated"},
		Limit:  1,
	})
	if err != nil {
		t.log.SideEffectFailed("fetch tax rate", err)
		return t.fallback
	}
	if len(recs) == 0 || recs[0].String("rate") == "" {
		return t.fallback
	}
	return recs[0].Float("rate")
}
