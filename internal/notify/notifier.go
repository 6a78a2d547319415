// Package notify delivers a matched payroll receipt (the CFDI XML plus the
// renamed PDF) to an employee by email.
//
// Three transports implement Notifier:
//   - SMTPNotifier: authenticated SMTP with mandatory STARTTLS
//   - GmailNotifier: the Gmail API with a stored OAuth2 token
//   - DryRunNotifier: logs the message and sends nothing
//
// All of them build the MIME message the same way (see compose).
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	mail "gopkg.in/mail.v2"
)

// Transport names accepted by the mail.transport setting.
const (
	TransportSMTP   = "smtp"
	TransportGmail  = "gmail"
	TransportDryRun = "dry-run"
)

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("message has no recipient")

// Notifier sends one message. Implementations are called sequentially.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain-text email with file attachments.
type Message struct {
	To      string
	Subject string
	Body    string

	// Attachments are file paths, attached under their base names in order.
	Attachments []string
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// compose builds the MIME message sent by the SMTP and Gmail transports.
// Attachments are read when the message is written, so a missing file
// surfaces as a send error.
func compose(from string, msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	for _, path := range msg.Attachments {
		m.Attach(path)
	}
	return m
}

// render writes the composed message to w.
func render(w io.Writer, from string, msg Message) error {
	if _, err := compose(from, msg).WriteTo(w); err != nil {
		return fmt.Errorf("compose message: %w", err)
	}
	return nil
}
