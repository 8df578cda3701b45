package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"vpn-account-ledger/internal/config"

	"github.com/rs/zerolog"
)

// Client is the subset of *smtp.Client used to deliver a message.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Transport opens authenticated SMTP sessions.
type Transport interface {
	Connect(ctx context.Context) (Client, error)
	From() string
}

var _ Transport = (*SMTPTransport)(nil)

// SMTPTransport dials the server, upgrades with STARTTLS and authenticates with PLAIN.
type SMTPTransport struct {
	cfg     config.SMTPConfig
	timeout time.Duration
	log     zerolog.Logger
}

func NewSMTPTransport(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPTransport {
	return &SMTPTransport{
		cfg:     cfg,
		timeout: 10 * time.Second,
		log:     logger.With().Str("component", "smtp").Logger(),
	}
}

func (t *SMTPTransport) From() string { return t.cfg.From }

func (t *SMTPTransport) Connect(ctx context.Context) (Client, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeQuietly(client)
		return nil, fmt.Errorf("smtp server %s does not support STARTTLS", t.cfg.Host)
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		t.closeQuietly(client)
		return nil, fmt.Errorf("smtp starttls: %w", err)
	}

	if t.cfg.User != "" {
		auth := smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			t.closeQuietly(client)
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return client, nil
}

func (t *SMTPTransport) closeQuietly(c *smtp.Client) {
	if err := c.Close(); err != nil {
		t.log.Debug().Err(err).Msg("close smtp client")
	}
}
