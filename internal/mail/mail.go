package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendSender sends mail through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("[Mail] Sent %q to %s (id=%s)", subject, to, sent.Id)
	return nil
}

// NoopSender logs instead of sending, for deployments without a mail key.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[Mail] Mail disabled, skipping %q to %s", subject, to)
	return nil
}

// MockSender records sent mail for tests.
type MockSender struct {
	Sent []SentMail
	Err  error
}

type SentMail struct {
	To      string
	Subject string
	HTML    string
}

func (m *MockSender) Send(_ context.Context, to, subject, html string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, HTML: html})
	return nil
}
