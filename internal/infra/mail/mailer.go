package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vpn-account-ledger/internal/domain/ports/adapter"
	"vpn-account-ledger/internal/infra/logging"

	"github.com/rs/zerolog"
)

var (
	_ adapter.Mailer = (*SMTPMailer)(nil)
	_ adapter.Mailer = (*LogMailer)(nil)
)

// SMTPMailer sends each message over its own SMTP session.
type SMTPMailer struct {
	transport Transport
	now       func() time.Time
	log       zerolog.Logger
}

func NewSMTPMailer(transport Transport, logger *zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		transport: transport,
		now:       time.Now,
		log:       logger.With().Str("component", "mailer").Logger(),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg adapter.Email) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail without recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := m.transport.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			m.log.Debug().Err(err).Msg("close smtp client")
		}
	}()

	from := m.transport.From()
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write([]byte(compose(from, msg, m.now()))); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	if err := client.Quit(); err != nil {
		m.log.Debug().Err(err).Msg("smtp QUIT failed after delivery")
	}
	m.log.Debug().Str("to", logging.Redact(msg.To, false)).Str("subject", msg.Subject).Msg("mail sent")
	return nil
}

func compose(from string, msg adapter.Email, at time.Time) string {
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return strings.Join([]string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"Date: " + at.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")
}

// LogMailer only logs messages. Used when no SMTP host is configured.
type LogMailer struct {
	log zerolog.Logger
	dev bool
}

func NewLogMailer(logger *zerolog.Logger, dev bool) *LogMailer {
	return &LogMailer{log: logger.With().Str("component", "mailer").Logger(), dev: dev}
}

func (m *LogMailer) Send(ctx context.Context, msg adapter.Email) error {
	ev := m.log.Info().Str("to", logging.Redact(msg.To, m.dev)).Str("subject", msg.Subject)
	if m.dev {
		ev = ev.Str("body", msg.Body)
	}
	ev.Msg("mail not delivered: smtp disabled")
	return nil
}
