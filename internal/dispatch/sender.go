package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Sender delivers one rendered email. SMTP details, provider retries and
// bounces live behind this boundary.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ResendSender delivers via the Resend API.
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

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}

// LogSender writes the email to the log instead of sending it. Used in
// development and tests.
type LogSender struct {
	Log *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.Log.Info("email (log driver)", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}
