package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	mail "gopkg.in/mail.v2"
)

// Default SMTP settings, matching a Gmail account with an app password.
const (
	DefaultSMTPHost    = "smtp.gmail.com"
	DefaultSMTPPort    = 587
	DefaultSMTPTimeout = 30 * time.Second
)

// SMTPConfig configures an SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string

	// Timeout bounds dialing and each SMTP command. Zero means
	// DefaultSMTPTimeout.
	Timeout time.Duration

	Logger *zerolog.Logger
}

// SMTPNotifier sends messages through an authenticated SMTP server. Each
// Send opens its own connection.
type SMTPNotifier struct {
	dialer *mail.Dialer
	sender string
	logger *zerolog.Logger
}

// NewSMTP creates an SMTPNotifier. STARTTLS is mandatory except on port 465,
// where the connection is TLS from the start.
func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.Timeout = cfg.Timeout

	return &SMTPNotifier{dialer: d, sender: cfg.Sender, logger: cfg.Logger}
}

// Send delivers msg. The context is checked before dialing; an SMTP exchange
// already in progress is bounded by the dialer timeout instead.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.dialer.DialAndSend(compose(n.sender, msg)); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", n.dialer.Host, n.dialer.Port, err)
	}

	n.logger.Debug().
		Str("to", msg.To).
		Int("attachments", len(msg.Attachments)).
		Msg("message sent via smtp")
	return nil
}
