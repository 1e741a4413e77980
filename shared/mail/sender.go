package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings for the live sender
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// OutboundEmail is a single rendered message ready to send
type OutboundEmail struct {
	To      string
	Subject string
	Body    string
}

// SMTPSender sends mail over SMTP
type SMTPSender struct {
	config *Config
	dialer *gomail.Dialer
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(config *Config) *SMTPSender {
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
	}
}

// Send delivers one message. gomail has no context support, so the
// context is only consulted before dialing.
func (s *SMTPSender) Send(ctx context.Context, email OutboundEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/html", email.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}
