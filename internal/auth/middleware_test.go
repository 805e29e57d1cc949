package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func protectedHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		if claims.Type != "access" {
			t.Errorf("expected access claims, got %q", claims.Type)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidAccessToken(t *testing.T) {
	tm := NewTokenManager("test-secret-with-enough-entropy-123456", 15*time.Minute, 24*time.Hour)
	access, _, err := tm.Issue("acct-1", "alice@x.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/accounts/acct-1/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()

	Middleware(tm)(protectedHandler(t)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := NewTokenManager("test-secret-with-enough-entropy-123456", 15*time.Minute, 24*time.Hour)
	_, refresh, err := tm.Issue("acct-1", "alice@x.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/accounts/acct-1/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()

	Middleware(tm)(protectedHandler(t)).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for refresh token, got %d", w.Code)
	}
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	tm := NewTokenManager("test-secret-with-enough-entropy-123456", 15*time.Minute, 24*time.Hour)
	handler := Middleware(tm)(protectedHandler(t))

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/accounts/acct-1/alerts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}
