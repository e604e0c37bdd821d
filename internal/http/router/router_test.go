package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "inspection_booking_backend/internal/http"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ok := func(c *gin.Context) { c.String(http.StatusOK, "pong") }
	ctx.Funnel.GET("/ping", ok)
	ctx.Dashboard.GET("/ping", ok)
	ctx.Webhooks.POST("/ping", ok)
}

func newTestApp(health apphttp.HealthChecker) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config: &config.Config{
			CORSOrigins:     []string{"https://book.example.com"},
			FunnelRate:      1,
			FunnelBurst:     2,
			JWTAccessSecret: "secret",
		},
		Logger:  logger.Nop(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	}
}

func do(engine *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:5000"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	if w := do(New(newTestApp(nil)), http.MethodGet, "/api/health", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	down := apphttp.HealthCheckFunc(func(context.Context) error { return errors.New("redis down") })
	if w := do(New(newTestApp(down)), http.MethodGet, "/api/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRouteGroups(t *testing.T) {
	engine := New(newTestApp(nil))

	w := do(engine, http.MethodGet, "/api/v1/funnel/ping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected funnel route open, got %d", w.Code)
	}
	if w.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatalf("expected a request id header")
	}
	if w := do(engine, http.MethodGet, "/api/v1/dashboard/ping", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected dashboard to require a token, got %d", w.Code)
	}
	if w := do(engine, http.MethodPost, "/api/v1/webhooks/ping", nil); w.Code != http.StatusOK {
		t.Fatalf("expected webhook route open, got %d", w.Code)
	}
}

func TestFunnelIsRateLimited(t *testing.T) {
	engine := New(newTestApp(nil))

	var last int
	for i := 0; i < 5; i++ {
		last = do(engine, http.MethodGet, "/api/v1/funnel/ping", nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", last)
	}
	if w := do(engine, http.MethodPost, "/api/v1/webhooks/ping", nil); w.Code != http.StatusOK {
		t.Fatalf("webhooks must not share the funnel limiter, got %d", w.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := New(newTestApp(nil))

	w := do(engine, http.MethodGet, "/api/v1/funnel/ping", map[string]string{"Origin": "https://book.example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://book.example.com" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	w = do(engine, http.MethodGet, "/api/v1/funnel/ping", map[string]string{"Origin": "https://evil.example.com"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected foreign origin rejected, got %d", w.Code)
	}
}
