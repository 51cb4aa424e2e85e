package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/api/response"
	"github.com/privacyeraser/privacyeraser/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /v1/auth/register - create an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	creds, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		var valErr *auth.ValidationError
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			response.Conflict(w, r, "email is already registered")
		case errors.As(err, &valErr):
			response.BadRequest(w, r, "validation error", valErr.Errors)
		default:
			response.InternalError(w, r, "registration failed")
		}
		return
	}

	response.Created(w, r, "/v1/users/me", tokenResponse(creds))
}

// Login handles POST /v1/auth/login - exchange credentials for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	creds, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			response.Unauthorized(w, r, "invalid email or password")
		case errors.Is(err, auth.ErrAccountDisabled):
			response.Unauthorized(w, r, "account is disabled")
		default:
			response.InternalError(w, r, "login failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResponse(creds))
}

// ForgotPassword handles POST /v1/auth/forgot-password - request a
// reset link. The response never reveals whether the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.Email == "" {
		response.BadRequest(w, r, "email is required", nil)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		response.InternalError(w, r, "password reset failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MessageResponse{
		Message: "If the email exists, a reset link has been sent",
	})
}

// ResetPassword handles POST /v1/auth/reset-password - set a new
// password using a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		var valErr *auth.ValidationError
		switch {
		case errors.Is(err, auth.ErrInvalidResetToken):
			response.BadRequest(w, r, "invalid or expired reset token", nil)
		case errors.As(err, &valErr):
			response.BadRequest(w, r, "validation error", valErr.Errors)
		default:
			response.InternalError(w, r, "password reset failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.MessageResponse{
		Message: "Password has been reset",
	})
}

// VerifyEmail handles POST /v1/auth/verify-email - confirm an email
// address using the token from the verification mail.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidVerifyToken) {
			response.BadRequest(w, r, "invalid verification token", nil)
			return
		}
		response.InternalError(w, r, "email verification failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MessageResponse{
		Message: "Email verified",
	})
}

func tokenResponse(creds *auth.Credentials) models.TokenResponse {
	return models.TokenResponse{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(creds.ExpiresAt).Seconds()),
		User: models.UserView{
			ID:         creds.User.ID,
			Email:      creds.User.Email,
			Plan:       models.Plan(creds.User.Plan),
			IsVerified: creds.User.IsVerified,
			CreatedAt:  models.Timestamp(creds.User.CreatedAt),
		},
	}
}
