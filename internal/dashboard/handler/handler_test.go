package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/internal/dashboard/service"
	"inspection_booking_backend/internal/dashboard/transport"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "dashboard-secret"

func newTestRouter(store *crmtest.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/dashboard", httpkit.AuthRequired(&config.Config{JWTAccessSecret: testSecret}))
	New(service.New(store, logger.Nop()), validator.New()).RegisterRoutes(group)
	return r
}

func token(t *testing.T, secret, sub string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func get(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListRequiresValidToken(t *testing.T) {
	r := newTestRouter(crmtest.New())

	if w := get(r, "/dashboard/deals", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := get(r, "/dashboard/deals", token(t, "other-secret", "u1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", w.Code)
	}
	if w := get(r, "/dashboard/deals", token(t, testSecret, "")); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without subject, got %d", w.Code)
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	store := crmtest.New()
	for _, name := range []string{"first", "second", "third"} {
		store.Seed(crm.Deals, crm.Record{"name": name})
	}
	r := newTestRouter(store)
	bearer := token(t, testSecret, "u1")

	w := get(r, "/dashboard/deals?limit=2", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var page transport.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Limit != 2 || page.Page != 1 || len(page.Items) != 2 || page.Items[0].String("name") != "third" {
		t.Fatalf("unexpected first page %+v", page)
	}

	w = get(r, "/dashboard/deals?limit=2&page=2", bearer)
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].String("name") != "first" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestListRejectsOversizedLimit(t *testing.T) {
	r := newTestRouter(crmtest.New())
	if w := get(r, "/dashboard/bookings?limit=500", token(t, testSecret, "u1")); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListSurfacesUpstreamFailure(t *testing.T) {
	store := crmtest.New()
	store.FailOn("list", crm.Payments, errors.New("crm down"))
	r := newTestRouter(store)

	if w := get(r, "/dashboard/payments", token(t, testSecret, "u1")); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if w := get(r, "/dashboard/invoices", token(t, testSecret, "u1")); w.Code != http.StatusOK {
		t.Fatalf("expected other resources unaffected, got %d", w.Code)
	}
}

func TestListRejectsAnonymousViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(service.New(crmtest.New(), logger.Nop()), validator.New()).RegisterRoutes(r.Group("/open"))

	if w := get(r, "/open/deals", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 outside the auth group, got %d", w.Code)
	}
}
