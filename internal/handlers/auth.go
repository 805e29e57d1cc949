package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mkarsten/gatehouse/internal/models"
	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

// AuthServiceInterface defines the interface for login business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error)
}

// AuthHandler handles credential submissions
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. CaptchaToken is
// accepted and validated for shape when present; challenge verification is
// delegated upstream.
type LoginRequest struct {
	Identifier   string `json:"identifier" validate:"required,min=3,max=254"`
	Password     string `json:"password" validate:"required"`
	CaptchaToken string `json:"captcha_token,omitempty" validate:"omitempty,min=20,max=2048"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	AccessToken   string               `json:"access_token"`
	RefreshToken  string               `json:"refresh_token"`
	User          UserSummary          `json:"user"`
	SecurityAlert *SecurityAlertNotice `json:"security_alert,omitempty"`
}

// UserSummary carries the account's stable identity fields
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// SecurityAlertNotice is the non-blocking advisory attached when the login
// origin differs from the previous successful login
type SecurityAlertNotice struct {
	Type              string `json:"type"`
	Message           string `json:"message"`
	PreviousIP        string `json:"previous_ip"`
	PreviousUserAgent string `json:"previous_user_agent"`
}

// Login handles a credential submission
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)

	originIP := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	grant, err := h.service.Login(r.Context(), req.Identifier, req.Password, originIP, userAgent)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	resp := LoginResponse{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		User: UserSummary{
			ID:       grant.AccountID,
			Email:    grant.Email,
			Username: grant.Username,
		},
	}
	if grant.OriginAdvisory != nil {
		resp.SecurityAlert = &SecurityAlertNotice{
			Type:              models.AlertUnusualLogin,
			Message:           "This login came from a new device or location.",
			PreviousIP:        grant.OriginAdvisory.PreviousIP,
			PreviousUserAgent: grant.OriginAdvisory.PreviousUserAgent,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// writeLoginError maps the typed login errors onto the wire. Anything
// unrecognized is a server error; the lock check has already failed closed
// by the time an error reaches here.
func writeLoginError(w http.ResponseWriter, err error) {
	if le, ok := models.AsLockedError(err); ok {
		pkghttp.WriteLocked(w, le.Until, le.RemainingSeconds())
		return
	}
	if ice, ok := models.AsInvalidCredentialsError(err); ok {
		pkghttp.WriteInvalidCredentials(w, ice.RemainingAttempts)
		return
	}
	pkghttp.WriteInternalError(w, "Internal server error")
}
