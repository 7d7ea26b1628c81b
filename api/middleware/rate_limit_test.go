package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryWindow struct {
	counts map[string]int64
}

func (m *memoryWindow) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func loginRequest(ip, email string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.RemoteAddr = ip + ":5555"
	return req
}

func TestAuthRateLimitByEmail(t *testing.T) {
	limiter := &memoryWindow{counts: map[string]int64{}}
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 100, EmailLimit: 2}
	handler := AuthRateLimit(policy, limiter, nil)(okHandler(nil))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, loginRequest("10.0.0.1", "Buyer@Example.com"))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("10.0.0.2", " buyer@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("10.0.0.2", "other@example.com"))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRateLimitByIP(t *testing.T) {
	limiter := &memoryWindow{counts: map[string]int64{}}
	policy := AuthRateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	handler := AuthRateLimit(policy, limiter, nil)(okHandler(nil))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("10.0.0.9", "a@example.com"))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, loginRequest("10.0.0.9", "b@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestPublicRateLimiterBucketPerIP(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewPublicRateLimiter(1, 2, time.Minute)
	limiter.now = func() time.Time { return now }
	handler := limiter.Middleware(nil)(okHandler(nil))

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/track/ORD-1", nil)
		req.RemoteAddr = ip + ":1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	assert.Equal(t, http.StatusOK, call("1.1.1.1"))
	assert.Equal(t, http.StatusOK, call("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("1.1.1.1"))
	assert.Equal(t, http.StatusOK, call("2.2.2.2"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, call("1.1.1.1"))

	now = now.Add(5 * time.Minute)
	call("3.3.3.3")
	limiter.mu.Lock()
	assert.Len(t, limiter.visitors, 1)
	limiter.mu.Unlock()
}
