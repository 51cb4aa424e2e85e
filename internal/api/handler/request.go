package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/api/response"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/removal"
)

// RequestHandler handles the removal request workflow.
type RequestHandler struct {
	removalService *removal.Service
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(removalService *removal.Service) *RequestHandler {
	return &RequestHandler{
		removalService: removalService,
	}
}

// ListRequests handles GET /v1/requests - the user's removal requests.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	requests, err := h.removalService.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to list requests")
		return
	}

	response.JSON(w, r, http.StatusOK, requests)
}

// RequestStats handles GET /v1/requests/stats - removal request counters.
func (h *RequestHandler) RequestStats(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	stats, err := h.removalService.Stats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to load request stats")
		return
	}

	response.JSON(w, r, http.StatusOK, stats)
}

// CreateRequest handles POST /v1/requests - open a removal request for
// an exposure.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input models.RequestCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.ExposureID == "" {
		response.BadRequest(w, r, "exposureId is required", nil)
		return
	}

	req, err := h.removalService.Create(r.Context(), userID, input.ExposureID, string(input.RequestType))
	if err != nil {
		switch {
		case errors.Is(err, exposure.ErrExposureNotFound):
			response.NotFound(w, r, "exposure not found")
		case errors.Is(err, removal.ErrDuplicateActive):
			response.Conflict(w, r, "an active removal request already exists for this exposure")
		case errors.Is(err, removal.ErrProfileIncomplete):
			response.PreconditionFailed(w, r, "profile must include first and last name before requesting removal")
		case errors.Is(err, removal.ErrPlanLimit):
			response.PlanLimit(w, r, "active request limit reached for your plan")
		case errors.Is(err, removal.ErrInvalidState):
			response.InvalidState(w, r, "unsupported request type")
		default:
			response.InternalError(w, r, "failed to create request")
		}
		return
	}

	response.Created(w, r, "/v1/requests/"+req.ID, req)
}

// SubmitRequest handles POST /v1/requests/{id}/submit - mark a pending
// request as submitted to the broker.
func (h *RequestHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	requestID := chi.URLParam(r, "id")

	resp, err := h.removalService.Submit(r.Context(), userID, requestID)
	if err != nil {
		h.writeWorkflowError(w, r, err, "failed to submit request")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// CompleteRequest handles POST /v1/requests/{id}/complete - confirm the
// broker removed the listing.
func (h *RequestHandler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	requestID := chi.URLParam(r, "id")

	resp, err := h.removalService.Complete(r.Context(), userID, requestID)
	if err != nil {
		h.writeWorkflowError(w, r, err, "failed to complete request")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func (h *RequestHandler) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, removal.ErrRequestNotFound):
		response.NotFound(w, r, "request not found")
	case errors.Is(err, removal.ErrInvalidState):
		response.InvalidState(w, r, "request is not in a state that allows this transition")
	default:
		response.InternalError(w, r, fallback)
	}
}
