// Package client sends and checks phone verification codes.
package client

import (
	"context"
	"errors"
	"strings"

	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

const (
	channelSMS     = "sms"
	statusApproved = "approved"
)

// ErrNotConfigured is returned when no verify service is configured.
var ErrNotConfigured = errors.New("phone verification not configured")

// Verifier delivers one-time codes and checks them.
type Verifier interface {
	Send(ctx context.Context, to string) error
	Check(ctx context.Context, to, code string) (bool, error)
}

// New returns the sandbox verifier when enabled, else Twilio Verify.
func New(cfg config.VerifyConfig, log *logger.Logger) Verifier {
	if cfg.GetVerifySandboxEnabled() {
		log.Warn("phone verification sandbox enabled; no codes are sent")
		return NewSandbox(cfg.GetVerifySandboxCode())
	}
	return NewTwilio(cfg.GetTwilioAccountSID(), cfg.GetTwilioAuthToken(), cfg.GetVerifyServiceSID())
}

// Twilio uses the Verify v2 API.
type Twilio struct {
	client     *twilio.RestClient
	serviceSID string
}

// NewTwilio creates a Twilio verifier.
func NewTwilio(accountSID, authToken, serviceSID string) *Twilio {
	return &Twilio{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		serviceSID: strings.TrimSpace(serviceSID),
	}
}

func (t *Twilio) Send(_ context.Context, to string) error {
	if t.serviceSID == "" {
		return ErrNotConfigured
	}
	params := &verify.CreateVerificationParams{}
	params.SetTo(to)
	params.SetChannel(channelSMS)
	_, err := t.client.VerifyV2.CreateVerification(t.serviceSID, params)
	return err
}

func (t *Twilio) Check(_ context.Context, to, code string) (bool, error) {
	if t.serviceSID == "" {
		return false, ErrNotConfigured
	}
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(to)
	params.SetCode(code)
	resp, err := t.client.VerifyV2.CreateVerificationCheck(t.serviceSID, params)
	if err != nil {
		return false, err
	}
	if resp.Valid != nil && *resp.Valid {
		return true, nil
	}
	return resp.Status != nil && *resp.Status == statusApproved, nil
}

// Sandbox accepts one fixed code and sends nothing.
type Sandbox struct {
	code string
}

// NewSandbox creates a sandbox verifier.
func NewSandbox(code string) *Sandbox {
	return &Sandbox{code: strings.TrimSpace(code)}
}

// Code returns the accepted code.
func (s *Sandbox) Code() string { return s.code }

func (s *Sandbox) Send(context.Context, string) error { return nil }

func (s *Sandbox) Check(_ context.Context, _ string, code string) (bool, error) {
	return s.code != "" && strings.TrimSpace(code) == s.code, nil
}

var (
	_ Verifier = (*Twilio)(nil)
	_ Verifier = (*Sandbox)(nil)
)
