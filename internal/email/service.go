package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Sender delivers a single email. Implemented by Client.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// Service composes and sends the product's transactional mail. It
// satisfies the Mailer interfaces of the auth and removal packages.
type Service struct {
	sender      Sender
	frontendURL string
	logger      zerolog.Logger
}

// ServiceConfig holds configuration for the email service.
type ServiceConfig struct {
	Sender      Sender
	FrontendURL string
	Logger      zerolog.Logger
}

// NewService creates a new email service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		sender:      cfg.Sender,
		frontendURL: cfg.FrontendURL,
		logger:      cfg.Logger,
	}
}

// SendVerification emails the address-verification link.
func (s *Service) SendVerification(ctx context.Context, to, token string) error {
	verifyURL := fmt.Sprintf("%s/auth/verify?token=%s", s.frontendURL, token)

	html := buttonTemplate(
		"Verify your email",
		"Thanks for signing up for Privacy Eraser! Please verify your email address by clicking the button below.",
		"Verify Email",
		verifyURL,
		"If you didn't create an account, you can safely ignore this email.",
	)

	return s.send(ctx, to, "Verify your email - Privacy Eraser", html)
}

// SendPasswordReset emails the password-reset link.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string) error {
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", s.frontendURL, token)

	html := buttonTemplate(
		"Reset your password",
		"We received a request to reset your password. Click the button below to choose a new password.",
		"Reset Password",
		resetURL,
		"This link expires in 1 hour. If you didn't request a password reset, you can safely ignore this email.",
	)

	return s.send(ctx, to, "Reset your password - Privacy Eraser", html)
}

// SendRemovalConfirmed notifies the user that a broker removed their data.
func (s *Service) SendRemovalConfirmed(ctx context.Context, to, brokerName string) error {
	dashboardURL := s.frontendURL + "/dashboard"

	html := buttonTemplate(
		"Removal Complete!",
		fmt.Sprintf("Great news! Your personal information has been successfully removed from <strong>%s</strong>.", brokerName),
		"View Dashboard",
		dashboardURL,
		"We'll continue monitoring this site to make sure your data doesn't reappear.",
	)

	return s.send(ctx, to, fmt.Sprintf("Removal Complete: %s - Privacy Eraser", brokerName), html)
}

// SendNewExposureAlert warns the user that their data surfaced on a broker.
func (s *Service) SendNewExposureAlert(ctx context.Context, to, brokerName, profileURL string) error {
	dashboardURL := s.frontendURL + "/dashboard"

	body := fmt.Sprintf("We found your personal information on <strong>%s</strong>.", brokerName)
	if profileURL != "" {
		body += fmt.Sprintf(`</p><p style="background-color: #fef2f2; padding: 12px; border-radius: 8px; color: #991b1b;">Your data is exposed at: %s`, profileURL)
	}

	html := buttonTemplate(
		"New Exposure Found",
		body,
		"Remove My Data",
		dashboardURL,
		"Click above to start a removal request and protect your privacy.",
	)

	return s.send(ctx, to, fmt.Sprintf("New Exposure Found: %s - Privacy Eraser", brokerName), html)
}

func (s *Service) send(ctx context.Context, to, subject, html string) error {
	id, err := s.sender.Send(ctx, to, subject, html)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("to", to).
		Str("subject", subject).
		Str("message_id", id).
		Msg("email sent")
	return nil
}

func buttonTemplate(heading, body, buttonLabel, buttonURL, footer string) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
	<h1 style="color: #0f172a;">%s</h1>
	<p>%s</p>
	<a href="%s" style="display: inline-block; background-color: #6366f1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; margin: 16px 0;">%s</a>
	<p style="color: #64748b; font-size: 14px;">%s</p>
	<p style="color: #64748b; font-size: 14px;">Or copy this link: %s</p>
</div>`, heading, body, buttonURL, buttonLabel, footer, buttonURL)
}
