// Package auth provides email/password authentication for the Privacy
// Eraser API: registration, login, JWT access tokens, and token-based
// password reset and email verification.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// Predefined service errors.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrInvalidVerifyToken = errors.New("invalid verification token")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// ValidationError carries field-level validation failures.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func fieldError(field, message, code string) error {
	return &ValidationError{Errors: []models.FieldError{
		{Field: field, Message: message, Code: code},
	}}
}

// Mailer sends transactional auth mail. Implemented by the email package.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Service provides authentication operations.
type Service struct {
	jwtService *JWTService
	users      user.Repository
	mailer     Mailer
	logger     zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	Users      user.Repository
	Mailer     Mailer
	Logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		users:      cfg.Users,
		mailer:     cfg.Mailer,
		logger:     cfg.Logger,
	}
}

// Credentials is the result of a successful registration or login.
type Credentials struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *user.User
}

// Register creates a new user account on the free plan and returns an
// access token. A verification email is sent best-effort.
func (s *Service) Register(ctx context.Context, email, password string) (*Credentials, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fieldError("password", "must be at least 8 characters", "too_short")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	verifyToken, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:                uuid.New().String(),
		Email:             email,
		PasswordHash:      hash,
		Plan:              user.PlanFree,
		IsActive:          true,
		VerificationToken: &verifyToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, u.Email, verifyToken); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("sending verification email failed")
		}
	}

	return s.issueCredentials(u)
}

// Login authenticates a user with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issueCredentials(u)
}

// ForgotPassword generates a reset token and emails it to the user. To
// prevent account enumeration it succeeds silently for unknown addresses.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := GenerateOpaqueToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(ResetTokenExpiry)
	u.ResetToken = &token
	u.ResetTokenExpiresAt = &expires
	u.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, u.Email, token); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("sending reset email failed")
		}
	}

	return nil
}

// ResetPassword sets a new password for the user holding the reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return fieldError("password", "must be at least 8 characters", "too_short")
	}

	u, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if u.ResetTokenExpiresAt == nil || time.Now().After(*u.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = time.Now()

	return s.users.Update(ctx, u)
}

// VerifyEmail marks the account holding the verification token as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	u, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidVerifyToken
		}
		return err
	}

	u.IsVerified = true
	u.VerificationToken = nil
	u.UpdatedAt = time.Now()

	return s.users.Update(ctx, u)
}

// ValidateAccessToken validates a bearer token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) issueCredentials(u *user.User) (*Credentials, error) {
	token, expiresAt, err := s.jwtService.GenerateAccessToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fieldError("email", "invalid email address", "invalid")
	}
	return nil
}
