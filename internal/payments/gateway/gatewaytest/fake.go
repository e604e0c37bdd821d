// Package gatewaytest provides an in-memory payment gateway for tests.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"inspection_booking_backend/internal/payments/gateway"
)

// ErrUnknownIntent is returned by GetIntent for ids never stored.
var ErrUnknownIntent = errors.New("no such payment intent")

// Gateway stores intents and charges in memory. Intents created through
// CreateIntent with an idempotency key already seen return the first intent.
type Gateway struct {
	mu        sync.Mutex
	intents   map[string]gateway.Intent
	charges   map[string]*gateway.Charge
	byKey     map[string]string
	seq       int
	Creates   int
	CreateErr error
	GetErr    error
}

// New returns an empty fake gateway.
func New() *Gateway {
	return &Gateway{
		intents: make(map[string]gateway.Intent),
		charges: make(map[string]*gateway.Charge),
		byKey:   make(map[string]string),
	}
}

// Put stores or replaces an intent.
func (g *Gateway) Put(intent gateway.Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intent.ID] = intent
}

// PutCharge attaches a charge to an intent.
func (g *Gateway) PutCharge(intentID string, charge *gateway.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[intentID] = charge
}

func (g *Gateway) CreateIntent(_ context.Context, p gateway.IntentParams) (gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return gateway.Intent{}, g.CreateErr
	}
	if id, ok := g.byKey[p.IdempotencyKey]; ok && p.IdempotencyKey != "" {
		return g.intents[id], nil
	}
	g.seq++
	g.Creates++
	id := fmt.Sprintf("pi_test_%d", g.seq)
	intent := gateway.Intent{
		ID:           id,
		Status:       gateway.StatusRequiresPaymentMethod,
		ClientSecret: id + "_secret_abc",
		Currency:     p.Currency,
		Amount:       p.AmountMinor,
		Metadata:     p.Metadata,
	}
	g.intents[id] = intent
	if p.IdempotencyKey != "" {
		g.byKey[p.IdempotencyKey] = id
	}
	return intent, nil
}

func (g *Gateway) GetIntent(_ context.Context, id string) (gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.GetErr != nil {
		return gateway.Intent{}, g.GetErr
	}
	intent, ok := g.intents[id]
	if !ok {
		return gateway.Intent{}, ErrUnknownIntent
	}
	return intent, nil
}

func (g *Gateway) LatestCharge(_ context.Context, intentID string) (*gateway.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges[intentID], nil
}

var _ gateway.Gateway = (*Gateway)(nil)
