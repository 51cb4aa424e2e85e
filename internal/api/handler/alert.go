package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/api/response"
)

// AlertHandler handles monitoring alert endpoints.
type AlertHandler struct {
	alertService *alert.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService *alert.Service) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// ListAlerts handles GET /v1/monitoring/alerts - the user's alerts,
// newest first. ?unread=true filters to unread alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := queryInt(r, "limit", alert.DefaultListLimit)

	alerts, err := h.alertService.List(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		response.InternalError(w, r, "failed to list alerts")
		return
	}

	response.JSON(w, r, http.StatusOK, alerts)
}

// AlertStats handles GET /v1/monitoring/alerts/stats - alert counters.
func (h *AlertHandler) AlertStats(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	stats, err := h.alertService.Stats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to load alert stats")
		return
	}

	response.JSON(w, r, http.StatusOK, stats)
}

// MarkRead handles POST /v1/monitoring/alerts/{id}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	if err := h.alertService.MarkRead(r.Context(), userID, alertID); err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to mark alert read")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AlertReadResponse{Status: "read"})
}

// MarkAllRead handles POST /v1/monitoring/alerts/read-all.
func (h *AlertHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	count, err := h.alertService.MarkAllRead(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to mark alerts read")
		return
	}

	response.JSON(w, r, http.StatusOK, models.AlertReadResponse{Status: "read", Count: count})
}

// Dismiss handles DELETE /v1/monitoring/alerts/{id}.
func (h *AlertHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	alertID := chi.URLParam(r, "id")

	if err := h.alertService.Dismiss(r.Context(), userID, alertID); err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to dismiss alert")
		return
	}

	response.NoContent(w, r)
}
