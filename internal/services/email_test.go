package services

import (
	"context"
	"errors"
	"testing"

	"medlenswaitlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to, subject, html, text string
	err                     error
}

func (f *fakeMailer) Send(to, subject, html, text string) error {
	if f.err != nil {
		return f.err
	}
	f.to, f.subject, f.html, f.text = to, subject, html, text
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	d := data.(*domain.WelcomeEmailData)
	return "Welcome " + d.FullName, "<p>" + d.ShareURL + "</p>", d.ReferralCode, nil
}

func TestEmailService_SendWelcomeMessage(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewEmailService(mailer, fakeRenderer{}, "https://medlens.app", testLogger())

	err := svc.SendWelcomeMessage(context.Background(), &domain.WelcomeEmailData{
		Email:        "alice@example.com",
		FullName:     "Alice Kim",
		ReferralCode: "QY7TP2MX",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", mailer.to)
	assert.Equal(t, "Welcome Alice Kim", mailer.subject)
	assert.Contains(t, mailer.html, "https://medlens.app?ref=QY7TP2MX")
}

func TestEmailService_SendWelcomeMessage_Errors(t *testing.T) {
	svc := NewEmailService(&fakeMailer{err: errors.New("ses down")}, fakeRenderer{}, "", testLogger())

	err := svc.SendWelcomeMessage(context.Background(), &domain.WelcomeEmailData{Email: "a@b.com"})
	require.Error(t, err)

	require.Error(t, svc.SendWelcomeMessage(context.Background(), nil))
}
