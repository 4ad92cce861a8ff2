package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/qrgate/portal/config"
	"github.com/resend/resend-go/v2"
)

// Resend sends email through the Resend API.
type Resend struct {
	client *resend.Client
	from   string
}

// New returns a Resend sender, or Disabled when the key or sender is missing.
func New(cfg config.MailConfig) Sender {
	if !cfg.MailEnabled() {
		return Disabled{}
	}
	return NewResend(resend.NewClient(cfg.ResendAPIKey), cfg.FromEmail)
}

func NewResend(client *resend.Client, from string) *Resend {
	return &Resend{client: client, from: from}
}

// NewResendWithBaseURL points the client at another API host.
func NewResendWithBaseURL(httpClient *http.Client, apiKey, from, baseURL string) (*Resend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse resend base url: %w", err)
	}
	client := resend.NewCustomClient(httpClient, apiKey)
	client.BaseURL = u
	return NewResend(client, from), nil
}

func (r *Resend) Send(ctx context.Context, email Email) error {
	req := &resend.SendEmailRequest{
		From:    r.from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
	}
	for _, a := range email.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	if _, err := r.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
