package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/api/response"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// MeHandler handles the authenticated user's account and PII profile.
type MeHandler struct {
	userService *user.Service
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(userService *user.Service) *MeHandler {
	return &MeHandler{
		userService: userService,
	}
}

// GetMe handles GET /v1/users/me - current account with profile.
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	me, err := h.userService.GetMe(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Unauthorized(w, r, "user not found")
			return
		}
		response.InternalError(w, r, "failed to load account")
		return
	}

	response.JSON(w, r, http.StatusOK, me)
}

// GetProfile handles GET /v1/users/me/profile - the PII profile used
// for broker scans.
func (h *MeHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrProfileNotFound) {
			response.NotFound(w, r, "no profile saved yet")
			return
		}
		response.InternalError(w, r, "failed to load profile")
		return
	}

	response.JSON(w, r, http.StatusOK, profile)
}

// UpsertProfile handles PUT /v1/users/me/profile - create or update
// the PII profile.
func (h *MeHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input models.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	profile, err := h.userService.UpsertProfile(r.Context(), userID, &input)
	if err != nil {
		var valErr *user.ValidationError
		if errors.As(err, &valErr) {
			response.BadRequest(w, r, "validation error", valErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to save profile")
		return
	}

	response.JSON(w, r, http.StatusOK, profile)
}
