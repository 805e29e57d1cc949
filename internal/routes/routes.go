package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mkarsten/gatehouse/internal/auth"
	"github.com/mkarsten/gatehouse/internal/handlers"
	"github.com/mkarsten/gatehouse/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	otpHandler *handlers.OTPHandler,
	alertHandler *handlers.AlertHandler,
	tokenManager *auth.TokenManager,
) {
	// Outer per-IP throttle on the unauthenticated auth endpoints. Account
	// lockout semantics live in the login state machine, not here.
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/otp/generate", otpHandler.Generate)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/otp/verify", otpHandler.Verify)

	// Alert review requires an authenticated caller
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/accounts/{id}/alerts", alertHandler.ListAccountAlerts)
		r.Get("/alerts/active/count", alertHandler.ActiveAlertCount)
		r.Patch("/alerts/{id}/status", alertHandler.UpdateAlertStatus)
	})
}
