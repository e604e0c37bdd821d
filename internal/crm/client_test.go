package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inspection_booking_backend/platform/logger"
)

type testConfig struct{ url string }

func (c testConfig) GetCRMURL() string             { return c.url }
func (c testConfig) GetCRMToken() string           { return "secret-token" }
func (c testConfig) GetCRMTimeout() time.Duration { return 2 * time.Second }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig{url: srv.URL + "/"}, logger.Nop())
}

func TestClientListSendsFilterSortAndLimit(t *testing.T) {
	var gotQuery string
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/os_invoices" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"data":[{"id":42,"total":"550.00"}]}`)
	})

	rec, ok, err := FindLatest(context.Background(), client, Invoices, Eq("proposal.id", "7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a record")
	}
	if rec.ID() != "42" {
		t.Fatalf("expected id 42, got %q", rec.ID())
	}
	if rec.Float("total") != 550 {
		t.Fatalf("expected total 550, got %v", rec.Float("total"))
	}
	want := "filter%5Bproposal%5D%5Bid%5D%5B_eq%5D=7&limit=1&sort=-date_created"
	if gotQuery != want {
		t.Fatalf("expected query %q, got %q", want, gotQuery)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestClientFindLatestEmptyIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	_, ok, err := FindLatest(context.Background(), client, Proposals, Eq("deal", "1"))
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestClientCreateAndPatchSendJSONBody(t *testing.T) {
	var methods []string
	var bodies []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		_, _ = io.WriteString(w, `{"data":{"id":"9","status":"submitted"}}`)
	})

	created, err := client.Create(context.Background(), Payments, map[string]any{"status": "submitted"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := client.Patch(context.Background(), Payments, created.ID(), map[string]any{"amount": 550.0}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	if len(methods) != 2 || methods[0] != http.MethodPost || methods[1] != http.MethodPatch {
		t.Fatalf("expected POST then PATCH, got %v", methods)
	}
	if bodies[1]["amount"] != 550.0 {
		t.Fatalf("expected patch body amount 550, got %v", bodies[1]["amount"])
	}
}

func TestClientWrapsFailuresInTypedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Forbidden"}]}`)
	})

	_, err := client.Get(context.Background(), Deals, "3")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}

	_, ok, err := GetOptional(context.Background(), client, Deals, "3")
	if err != nil || ok {
		t.Fatalf("expected optional get to swallow 404, got (%v, %v)", ok, err)
	}
}

func TestClientServerErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})

	_, err := client.Create(context.Background(), Bookings, map[string]any{})
	crmErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if crmErr.StatusCode != http.StatusBadGateway || crmErr.Body != "upstream down" || crmErr.Operation != "create" || crmErr.Collection != Bookings {
		t.Fatalf("unexpected error fields: %+v", crmErr)
	}
}
