package email

import (
	"context"

	"github.com/resend/resend-go/v2"

	"github.com/palmsuites/invoicegen/internal/config"
	ierr "github.com/palmsuites/invoicegen/internal/errors"
)

// Attachment is one file going out with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Sender is the outbound transport. Tests substitute a fake.
type Sender interface {
	Send(ctx context.Context, to, subject, html string, att *Attachment) (string, error)
}

// resendSender delivers through the Resend API.
type resendSender struct {
	client *resend.Client
	from   string
}

// NewSender builds the Resend transport, or nil when email is disabled
// or unconfigured.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil
	}
	return &resendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.FromAddress,
	}
}

func (s *resendSender) Send(ctx context.Context, to, subject, html string, att *Attachment) (string, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if att != nil {
		params.Attachments = []*resend.Attachment{{
			Filename: att.Filename,
			Content:  att.Content,
		}}
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", ierr.WithError(err).
			WithHintf("delivery to %s failed", to).
			Mark(ierr.ErrDeliveryFailed)
	}
	return sent.Id, nil
}
