package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tuespacio/tuespacio/internal/recordstore"
)

// rateLimiter tracks failed login attempts per key.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 5
)

func newRateLimiter() *rateLimiter {
	return &rateLimiter{attempts: make(map[string][]time.Time), now: time.Now}
}

// prune drops attempts outside the window. Caller holds mu.
func (rl *rateLimiter) prune(key string) []time.Time {
	cutoff := rl.now().Add(-rateLimitWindow)
	valid := rl.attempts[key][:0]
	for _, t := range rl.attempts[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, key)
		return nil
	}
	rl.attempts[key] = valid
	return valid
}

// recordFailure records a failed attempt.
func (rl *rateLimiter) recordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.attempts[key] = append(rl.prune(key), rl.now())
}

// limited reports whether key has used up its attempts.
func (rl *rateLimiter) limited(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(key)) >= rateLimitMaxFail
}

func (rl *rateLimiter) reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// BearerToken returns the token from an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// WithToken stores the caller's token on the request context, where the
// record store client picks it up.
// Requests without a bearer token pass through unchanged.
func WithToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := BearerToken(r); token != "" {
			r = r.WithContext(recordstore.ContextWithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireToken rejects requests without a bearer token with 401.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if BearerToken(r) == "" {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}
		WithToken(next).ServeHTTP(w, r)
	})
}

// TokenFrom returns the token WithToken stored, or "".
func TokenFrom(ctx context.Context) string {
	return recordstore.TokenFromContext(ctx)
}
