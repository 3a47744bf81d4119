package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/palmsuites/invoicegen/internal/logger"
)

// DeliveryRequest asks for one invoice to go to one recipient.
type DeliveryRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
	Path      string `json:"path" binding:"required"`
}

// DeliveryResult reports one recipient's outcome. Failures are data,
// not errors; a bad address never blocks the rest of the list.
type DeliveryResult struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Service sends rendered invoices by email.
type Service struct {
	sender Sender
	log    *logger.Logger
}

func NewService(sender Sender, log *logger.Logger) *Service {
	return &Service{sender: sender, log: log}
}

// Enabled reports whether a transport is configured.
func (s *Service) Enabled() bool {
	return s.sender != nil
}

// SendInvoices delivers a PDF to each recipient, one entry at a time,
// collecting per-entry outcomes.
func (s *Service) SendInvoices(ctx context.Context, entries []DeliveryRequest) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(entries))
	for _, entry := range entries {
		res := DeliveryResult{Recipient: entry.Recipient, Status: "sent"}
		if err := s.sendOne(ctx, entry); err != nil {
			res.Status = "failed"
			res.Error = err.Error()
			s.log.Warnw("invoice delivery failed",
				"recipient", entry.Recipient, "path", entry.Path, "error", err)
		}
		results = append(results, res)
	}
	return results
}

func (s *Service) sendOne(ctx context.Context, entry DeliveryRequest) error {
	pdf, err := os.ReadFile(entry.Path)
	if err != nil {
		return fmt.Errorf("reading invoice: %w", err)
	}

	name := filepath.Base(entry.Path)
	subject := fmt.Sprintf("Your utility invoice %s", name)
	body := fmt.Sprintf("<p>Dear guest,</p><p>please find your utility invoice <strong>%s</strong> attached.</p>", name)

	_, err = s.sender.Send(ctx, entry.Recipient, subject, body, &Attachment{
		Filename: name,
		Content:  pdf,
	})
	return err
}
