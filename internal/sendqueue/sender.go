package sendqueue

import (
	"context"
	"fmt"

	"github.com/casthq/outreach-core/shared/mail"
)

// Mailer delivers one rendered email
type Mailer interface {
	Send(ctx context.Context, email mail.OutboundEmail) error
}

// MailSender adapts the SMTP mailer to the queue item shape
type MailSender struct {
	mailer Mailer
}

// NewMailSender creates a queue item sender backed by SMTP
func NewMailSender(mailer Mailer) *MailSender {
	return &MailSender{mailer: mailer}
}

// Send delivers the item's rendered message to its recipient
func (s *MailSender) Send(ctx context.Context, item *QueueItem) error {
	if item.RecipientEmail == "" {
		return fmt.Errorf("queue item %s has no recipient email", item.ID)
	}

	return s.mailer.Send(ctx, mail.OutboundEmail{
		To:      item.RecipientEmail,
		Subject: item.Subject,
		Body:    item.Body,
	})
}
