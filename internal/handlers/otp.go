package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mkarsten/gatehouse/internal/models"
	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

// OTPServiceInterface defines the interface for recovery-code business logic
type OTPServiceInterface interface {
	Generate(ctx context.Context, address string) error
	Verify(ctx context.Context, address, code string) error
}

// OTPHandler handles account recovery via one-time codes
type OTPHandler struct {
	service OTPServiceInterface
}

// NewOTPHandler creates a new OTPHandler
func NewOTPHandler(service OTPServiceInterface) *OTPHandler {
	return &OTPHandler{service: service}
}

// OTPGenerateRequest represents the request body for code generation
type OTPGenerateRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// OTPVerifyRequest represents the request body for code verification
type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// MessageResponse is a plain confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

// Generate handles recovery code generation
// @Summary Generate account recovery code
// @Accept json
// @Param request body OTPGenerateRequest true "Generate request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/otp/generate [post]
func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req OTPGenerateRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.service.Generate(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, models.ErrAccountNotLocked):
			// Unknown address and unlocked account produce the same body
			pkghttp.WriteBadRequest(w, "Account is not eligible for recovery")
		case errors.Is(err, models.ErrNotifierFailure):
			// Distinct from a verification failure so the client can offer
			// a resend rather than a password retry
			pkghttp.WriteError(w, http.StatusBadGateway, "delivery_failed", "Could not deliver the recovery code. Please request a new one.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeMessage(w, http.StatusOK, "A recovery code has been sent.")
}

// Verify handles recovery code verification
// @Summary Verify account recovery code
// @Accept json
// @Param request body OTPVerifyRequest true "Verify request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Router /auth/otp/verify [post]
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req OTPVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.service.Verify(r.Context(), req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, models.ErrOTPExpired):
			pkghttp.WriteError(w, http.StatusBadRequest, "otp_expired", "Recovery code has expired. Please request a new one.")
		case errors.Is(err, models.ErrOTPInvalid):
			pkghttp.WriteError(w, http.StatusBadRequest, "otp_invalid", "Invalid recovery code.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Account unlocked.")
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(MessageResponse{Message: message})
}
