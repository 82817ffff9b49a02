// Package notify delivers order lifecycle notifications over email and
// WhatsApp. Every send is best-effort; callers log and discard failures.
package notify

import (
	"context"

	"github.com/go-faster/errors"
	resend "github.com/resend/resend-go/v3"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers emails.
type EmailSender interface {
	Send(ctx context.Context, email *Email) error
}

// NopEmailSender drops every email. Used when no email provider is
// configured, so the notifier fan-out does not need nil checks.
type NopEmailSender struct{}

func (NopEmailSender) Send(context.Context, *Email) error { return nil }

// ResendSender sends email via the Resend API.
type ResendSender struct {
	from   string
	client *resend.Client
}

// NewResendSender creates a ResendSender with the given API key and sender
// address.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		from:   from,
		client: resend.NewClient(apiKey),
	}
}

// Send delivers one email via Resend.
func (r *ResendSender) Send(ctx context.Context, email *Email) error {
	if email.To == "" {
		return errors.New("email recipient is required")
	}
	if email.HTML == "" {
		return errors.New("email body is empty")
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	}
	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return errors.Wrap(err, "send email via resend")
	}
	return nil
}
