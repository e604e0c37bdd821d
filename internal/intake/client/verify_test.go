package client

import (
	"context"
	"errors"
	"testing"

	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

func TestNewPicksSandbox(t *testing.T) {
	v := New(&config.Config{VerifySandboxEnabled: true, VerifySandboxCode: "123456"}, logger.Nop())
	sb, ok := v.(*Sandbox)
	if !ok {
		t.Fatalf("expected sandbox verifier, got %T", v)
	}
	if sb.Code() != "123456" {
		t.Fatalf("unexpected sandbox code %q", sb.Code())
	}

	ok, err := v.Check(context.Background(), "+61412345678", " 123456 ")
	if err != nil || !ok {
		t.Fatalf("expected sandbox code approved, got %v %v", ok, err)
	}
	ok, _ = v.Check(context.Background(), "+61412345678", "654321")
	if ok {
		t.Fatalf("expected wrong code rejected")
	}
}

func TestTwilioRequiresService(t *testing.T) {
	v := New(&config.Config{TwilioAccountSID: "AC123", TwilioAuthToken: "token"}, logger.Nop())
	if err := v.Send(context.Background(), "+61412345678"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := v.Check(context.Background(), "+61412345678", "123456"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
