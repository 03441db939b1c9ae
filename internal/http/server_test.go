package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagnyr/canvas-critic/internal/config"
)

func TestHealthz(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	srv.health = staticHealth{err: errors.New("down")}
	rec = do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv.health = nil
	rec = do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{CORSAllowedOrigins: []string{"https://reviews.example.edu"}})

	req := httptest.NewRequest(http.MethodOptions, "/reviews", nil)
	req.Header.Set("Origin", "https://reviews.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://reviews.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/reviews?class_id=cs101", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	do(t, srv.Handler(), http.MethodGet, "/reviews?class_id=cs101", "")

	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reviews_http_requests_total")
}

func TestRateLimit_SubmitOnly(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{RateLimitRPS: 0.001, RateLimitBurst: 2})
	body := `{"class_id":"cs101","overall":4,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2}`

	post := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(body))
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, post("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusCreated, post("10.0.0.1:5001").Code)
	rec := post("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, post("10.0.0.2:5000").Code, "other clients keep their own bucket")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/reviews?class_id=cs101", "").Code)
	}
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	assert.Nil(t, srv.limiter)
}

func TestIPRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 1, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	assert.Equal(t, 2, l.len())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("c"))
	assert.Equal(t, 1, l.len())
	assert.True(t, l.allow("a"), "evicted visitor starts with a fresh bucket")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4321"
	assert.Equal(t, "192.0.2.7", clientIP(req))
	req.RemoteAddr = "192.0.2.8"
	assert.Equal(t, "192.0.2.8", clientIP(req))
}
