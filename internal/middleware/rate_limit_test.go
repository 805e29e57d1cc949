package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRateLimitByIP_ThrottlesAfterLimit verifies the per-IP throttle rejects
// bursts beyond the configured per-minute budget.
func TestRateLimitByIP_ThrottlesAfterLimit(t *testing.T) {
	config := RateLimitConfig{RequestsPerMinute: 3}
	middleware := RateLimitByIP(config)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, recorder.Code)
		}
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429 after limit, got %d", recorder.Code)
	}
}

// TestRateLimitByIP_IsolatesClients verifies one client's burst does not
// throttle another IP.
func TestRateLimitByIP_IsolatesClients(t *testing.T) {
	config := RateLimitConfig{RequestsPerMinute: 2}
	middleware := RateLimitByIP(config)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:1234"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected fresh IP to pass, got %d", recorder.Code)
	}
}

// TestRateLimitByIP_DistinctEndpointsShareBudget documents that the throttle
// keys on IP alone, not on path.
func TestRateLimitByIP_DistinctEndpointsShareBudget(t *testing.T) {
	config := RateLimitConfig{RequestsPerMinute: 2}
	middleware := RateLimitByIP(config)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", fmt.Sprintf("/auth/endpoint-%d", i), nil)
		req.RemoteAddr = "192.0.2.7:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Errorf("expected shared budget to be exhausted, got %d", recorder.Code)
	}
}
