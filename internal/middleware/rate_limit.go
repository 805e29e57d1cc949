package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

// RateLimitConfig holds request throttling configuration. This is the outer
// per-IP throttle on the auth endpoints; account lockout is enforced
// separately by the login state machine.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the default throttle for auth endpoints
// (10 requests per minute per IP)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
		}),
	)
}
