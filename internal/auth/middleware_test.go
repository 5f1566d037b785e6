package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(r); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestRequireToken(t *testing.T) {
	var seen string
	h := RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TokenFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/favorites", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	r := httptest.NewRequest("POST", "/api/favorites", nil)
	r.Header.Set("Authorization", "Bearer tok-1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK || seen != "tok-1" {
		t.Errorf("with token: status = %d, token = %q", w.Code, seen)
	}
}

func TestWithTokenPassesAnonymous(t *testing.T) {
	called := false
	h := WithToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if TokenFrom(r.Context()) != "" {
			t.Error("expected no token")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/listings", nil))
	if !called {
		t.Error("handler not called")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter()
	rl.now = func() time.Time { return now }

	for i := 0; i < rateLimitMaxFail; i++ {
		rl.recordFailure("k")
	}
	if !rl.limited("k") {
		t.Fatal("expected key to be limited")
	}

	now = now.Add(rateLimitWindow + time.Second)
	if rl.limited("k") {
		t.Error("expected limit to expire after the window")
	}

	rl.recordFailure("k")
	rl.reset("k")
	if rl.limited("k") {
		t.Error("expected reset to clear attempts")
	}
}
