package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/crm/crmtest"
	"inspection_booking_backend/internal/services/service"
	"inspection_booking_backend/internal/services/transport"
	"inspection_booking_backend/platform/logger"
	"inspection_booking_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func newTestRouter(store *crmtest.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(service.New(store, logger.Nop()), validator.New()).RegisterRoutes(r.Group("/services"))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListByCategory(t *testing.T) {
	store := crmtest.New()
	store.Seed(crm.Services, crm.Record{"service_name": "Building", "property_category": "residential"})
	store.Seed(crm.Services, crm.Record{"service_name": "Strata", "property_category": "commercial"})
	r := newTestRouter(store)

	w := get(r, "/services?propertyCategory=commercial")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res transport.ServiceListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Total != 1 || res.Items[0].Name != "Strata" {
		t.Fatalf("unexpected list %+v", res)
	}

	if w := get(r, "/services?propertyCategory=industrial"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", w.Code)
	}
}

func TestGetByIDMissing(t *testing.T) {
	r := newTestRouter(crmtest.New())
	if w := get(r, "/services/404"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
