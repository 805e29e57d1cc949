package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkarsten/gatehouse/internal/models"
	pkghttp "github.com/mkarsten/gatehouse/pkg/http"
)

// AlertReviewInterface defines the review-side contract for security alerts.
type AlertReviewInterface interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.SecurityAlert, error)
	UpdateStatus(ctx context.Context, id, status string) error
	CountActive(ctx context.Context) (int64, error)
}

// AlertHandler handles security alert review HTTP requests.
type AlertHandler struct {
	alerts AlertReviewInterface
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alerts AlertReviewInterface) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// AlertStatusRequest represents the request body for a review action
type AlertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active resolved false_positive"`
}

// ListAccountAlerts handles GET /accounts/{id}/alerts
// Accepts optional query param ?limit=N (1–100, default 50).
func (h *AlertHandler) ListAccountAlerts(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		pkghttp.WriteBadRequest(w, "Missing account id")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	alerts, err := h.alerts.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve alerts")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// ActiveAlertCount handles GET /alerts/active/count
func (h *AlertHandler) ActiveAlertCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.alerts.CountActive(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to count alerts")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"active_alerts": count})
}

// UpdateAlertStatus handles PATCH /alerts/{id}/status
func (h *AlertHandler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")
	if alertID == "" {
		pkghttp.WriteBadRequest(w, "Missing alert id")
		return
	}

	var req AlertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.alerts.UpdateStatus(r.Context(), alertID, req.Status); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Alert not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid alert status")
		default:
			pkghttp.WriteInternalError(w, "Failed to update alert")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Alert updated.")
}
