// Package service wraps the rate engine with service code normalization,
// a short-lived cache and zero-price degradation.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inspection_booking_backend/internal/pricing/transport"
	"inspection_booking_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

// Estimator is the rate engine call the service depends on.
type Estimator interface {
	Estimate(ctx context.Context, req transport.EstimateRequest) (transport.EstimateResponse, error)
}

type cacheEntry struct {
	estimate  transport.Estimate
	expiresAt time.Time
}

// Service returns price estimates. It never fails: an unavailable engine
// yields a zero-price estimate flagged as degraded.
type Service struct {
	client   Estimator
	log      *logger.Logger
	cache    map[string]cacheEntry
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
	flight   singleflight.Group
	now      func() time.Time
}

// engineTimeout bounds a shared engine call once it is detached from the
// caller that started it.
const engineTimeout = 15 * time.Second

// New creates a pricing service. A zero cacheTTL disables caching.
func New(client Estimator, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		client:   client,
		log:      log,
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

var serviceAliases = map[string]string{
	"oi-950-1":                 "pre_purchase",
	"oi-950-3":                 "new_construction_stages",
	"prepurchase":              "pre_purchase",
	"pre-purchase":             "pre_purchase",
	"pre purchase":             "pre_purchase",
	"pre-sales":                "pre_sales",
	"presales":                 "pre_sales",
	"pre sales":                "pre_sales",
	"construction_stages":      "new_construction_stages",
	"apartment-pre-settlement": "apartment_pre_settlement",
	"insurance-report":         "insurance_report",
	"defects-investigation":    "defects_investigation",
	"expert-witness-report":    "expert_witness_report",
	"pre-handover":             "pre_handover",
	"prehandover":              "pre_handover",
	"drug-resistance":          "drug_resistance",
	"drugresistance":           "drug_resistance",
	"building-and-pest":        "building_and_pest",
	"buildingandpest":          "building_and_pest",
	"building_pest":            "building_and_pest",
	"building-pest":            "building_and_pest",
}

// NormalizeServiceCode maps the aliases used by CRM service records onto the
// rate engine's canonical codes.
func NormalizeServiceCode(code string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if canonical, ok := serviceAliases[key]; ok {
		return canonical
	}
	return strings.ReplaceAll(key, " ", "_")
}

// Estimate prices serviceCode for attrs.
func (s *Service) Estimate(ctx context.Context, serviceCode string, attrs transport.PropertyAttributes) transport.Estimate {
	code := NormalizeServiceCode(serviceCode)
	if code == "" {
		s.log.Warn("pricing skipped: missing service code")
		return transport.Estimate{Degraded: true}
	}
	if attrs.PropertyCategory == "" {
		attrs.PropertyCategory = "residential"
	}

	key := cacheKey(code, attrs)
	if cached, ok := s.getFromCache(key); ok {
		return cached
	}

	// Identical requests in flight share one engine call, so it must not
	// inherit the cancellation of whichever caller happened to start it.
	v, err, _ := s.flight.Do(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), engineTimeout)
		defer cancel()
		resp, err := s.client.Estimate(callCtx, transport.EstimateRequest{Service: code, PropertyAttributes: attrs})
		if err != nil {
			return nil, err
		}
		estimate := transport.Estimate{
			Price:       resp.QuotePrice,
			Note:        strings.TrimSpace(resp.Note),
			StagePrices: resp.StagePrices,
		}
		s.setCache(key, estimate)
		return estimate, nil
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("pricing unavailable, using zero estimate", "service", code, "error", err)
		return transport.Estimate{Degraded: true}
	}
	return v.(transport.Estimate)
}

func cacheKey(code string, a transport.PropertyAttributes) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%t|%.2f|%v|%.2f",
		code, a.PropertyCategory, a.Bedrooms, a.Bathrooms, a.Levels, a.Basement, a.AreaSq, a.Stages, a.EstimatedDamageLoss)
}

func (s *Service) getFromCache(key string) (transport.Estimate, bool) {
	if s.cacheTTL <= 0 {
		return transport.Estimate{}, false
	}
	s.cacheMu.RLock()
	entry, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if !ok {
		return transport.Estimate{}, false
	}
	if s.now().After(entry.expiresAt) {
		s.cacheMu.Lock()
		if current, still := s.cache[key]; still && s.now().After(current.expiresAt) {
			delete(s.cache, key)
		}
		s.cacheMu.Unlock()
		return transport.Estimate{}, false
	}
	return entry.estimate, true
}

func (s *Service) setCache(key string, estimate transport.Estimate) {
	if s.cacheTTL <= 0 {
		return
	}
	now := s.now()
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for k, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = cacheEntry{estimate: estimate, expiresAt: now.Add(s.cacheTTL)}
}
