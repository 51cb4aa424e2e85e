package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/privacyeraser/privacyeraser/internal/api/response"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/scan"
)

// BrokerHandler handles the broker catalog, exposures and scans.
type BrokerHandler struct {
	brokerService   *broker.Service
	exposureService *exposure.Service
	scanService     *scan.Service
}

// NewBrokerHandler creates a new BrokerHandler.
func NewBrokerHandler(brokerService *broker.Service, exposureService *exposure.Service, scanService *scan.Service) *BrokerHandler {
	return &BrokerHandler{
		brokerService:   brokerService,
		exposureService: exposureService,
		scanService:     scanService,
	}
}

// ListBrokers handles GET /v1/brokers - the data broker catalog.
func (h *BrokerHandler) ListBrokers(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", broker.DefaultPageSize)

	brokers, err := h.brokerService.List(r.Context(), offset, limit)
	if err != nil {
		response.InternalError(w, r, "failed to list brokers")
		return
	}

	response.JSON(w, r, http.StatusOK, brokers)
}

// DashboardStats handles GET /v1/brokers/stats - exposure dashboard counters.
func (h *BrokerHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	stats, err := h.exposureService.Stats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to load stats")
		return
	}

	response.JSON(w, r, http.StatusOK, stats)
}

// ListExposures handles GET /v1/brokers/exposures - the user's exposures.
func (h *BrokerHandler) ListExposures(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	exposures, err := h.exposureService.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to list exposures")
		return
	}

	response.JSON(w, r, http.StatusOK, exposures)
}

// StartScan handles POST /v1/brokers/scan - kick off a background scan.
func (h *BrokerHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	accepted, err := h.scanService.Start(r.Context(), userID)
	if err != nil {
		if errors.Is(err, scan.ErrProfileIncomplete) {
			response.PreconditionFailed(w, r, "profile must include first and last name before scanning")
			return
		}
		response.InternalError(w, r, "failed to start scan")
		return
	}

	response.Accepted(w, r, "/v1/brokers/scan/status?scanId="+accepted.ScanID, accepted)
}

// ScanStatus handles GET /v1/brokers/scan/status - progress of a scan.
// Without a scanId query parameter it reports the user's latest scan.
func (h *BrokerHandler) ScanStatus(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	scanID := r.URL.Query().Get("scanId")

	status, err := h.scanService.Status(r.Context(), userID, scanID)
	if err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			response.NotFound(w, r, "no scan found")
			return
		}
		response.InternalError(w, r, "failed to load scan status")
		return
	}

	response.JSON(w, r, http.StatusOK, status)
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
