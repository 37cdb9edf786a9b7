package services

import (
	"context"
	"fmt"
	"log/slog"

	"medlenswaitlist/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	shareURL string
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and
// template renderer. shareURL is the public base URL entrants share
// together with their referral code.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, shareURL string, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, shareURL: shareURL, logger: logger}
}

// SendWelcomeMessage sends the post-signup welcome email using the
// "welcome" template. The email carries the entrant's referral code and
// share link.
func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome message data is nil")
	}
	if data.ShareURL == "" && s.shareURL != "" {
		data.ShareURL = fmt.Sprintf("%s?ref=%s", s.shareURL, data.ReferralCode)
	}
	subject, htmlBody, textBody, err := s.renderer.Render("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	s.logger.Info("welcome email sent", "email", data.Email)
	return nil
}
