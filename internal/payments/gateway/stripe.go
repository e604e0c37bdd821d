package gateway

import (
	"context"
	"strings"

	"inspection_booking_backend/platform/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe implements Gateway on the Stripe API.
type Stripe struct {
	api *client.API
	log *logger.Logger
}

// NewStripe creates the Stripe gateway. An empty secret key yields a gateway
// whose calls fail with ErrNotConfigured.
func NewStripe(secretKey string, log *logger.Logger) *Stripe {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		log.Warn("stripe gateway disabled: STRIPE_SECRET_KEY not configured")
		return &Stripe{log: log}
	}
	return &Stripe{api: client.New(secretKey, nil), log: log}
}

// CreateIntent creates a payment intent with automatic payment methods.
func (s *Stripe) CreateIntent(ctx context.Context, p IntentParams) (Intent, error) {
	if s.api == nil {
		return Intent{}, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		s.log.WithContext(ctx).UpstreamError("stripe", "create payment intent", err)
		return Intent{}, err
	}
	return FromStripeIntent(pi), nil
}

// GetIntent retrieves an intent by id.
func (s *Stripe) GetIntent(ctx context.Context, id string) (Intent, error) {
	if s.api == nil {
		return Intent{}, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		s.log.WithContext(ctx).UpstreamError("stripe", "retrieve payment intent", err)
		return Intent{}, err
	}
	return FromStripeIntent(pi), nil
}

// LatestCharge lists the intent's charges newest first and returns the first.
func (s *Stripe) LatestCharge(ctx context.Context, intentID string) (*Charge, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.ChargeListParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.api.Charges.List(params)
	if iter.Next() {
		return FromStripeCharge(iter.Charge()), nil
	}
	if err := iter.Err(); err != nil {
		s.log.WithContext(ctx).UpstreamError("stripe", "list charges", err)
		return nil, err
	}
	return nil, nil
}

// FromStripeIntent converts a Stripe payment intent.
func FromStripeIntent(pi *stripe.PaymentIntent) Intent {
	if pi == nil {
		return Intent{}
	}
	intent := Intent{
		ID:                 pi.ID,
		Status:             string(pi.Status),
		ClientSecret:       pi.ClientSecret,
		Currency:           string(pi.Currency),
		Amount:             pi.Amount,
		AmountReceived:     pi.AmountReceived,
		AmountCapturable:   pi.AmountCapturable,
		Created:            pi.Created,
		Metadata:           pi.Metadata,
		PaymentMethodTypes: pi.PaymentMethodTypes,
	}
	if pi.LastPaymentError != nil {
		intent.LastError = &PaymentError{
			Code:        string(pi.LastPaymentError.Code),
			DeclineCode: string(pi.LastPaymentError.DeclineCode),
			Message:     pi.LastPaymentError.Msg,
		}
	}
	if pi.LatestCharge != nil {
		intent.LatestChargeID = pi.LatestCharge.ID
	}
	return intent
}

// FromStripeCharge converts a Stripe charge.
func FromStripeCharge(ch *stripe.Charge) *Charge {
	if ch == nil {
		return nil
	}
	out := &Charge{
		ID:         ch.ID,
		ReceiptURL: ch.ReceiptURL,
		Created:    ch.Created,
	}
	if details := ch.PaymentMethodDetails; details != nil {
		out.MethodType = string(details.Type)
		if card := details.Card; card != nil {
			out.CardBrand = string(card.Brand)
			out.CardLast4 = card.Last4
			out.ExpMonth = card.ExpMonth
			out.ExpYear = card.ExpYear
		}
	}
	return out
}

var _ Gateway = (*Stripe)(nil)
