// Package mail delivers outbound plain-text messages.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podium/internal/config"
	"podium/internal/middleware"
	"podium/internal/observability"

	gomail "github.com/wneessen/go-mail"
)

// Message is a single plain-text mail to one recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when MAIL_HOST is set and a logging mailer otherwise.
func New(cfg *config.Config) (Mailer, error) {
	if strings.TrimSpace(cfg.MailHost) == "" {
		return NewLogMailer(cfg.MailFrom), nil
	}
	return NewSMTPMailer(SMTPOptions{
		Host:     cfg.MailHost,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		From:     cfg.MailFrom,
		SSL:      cfg.MailPort == 465,
	})
}

// SMTPOptions configures an SMTPMailer.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL dials implicit TLS. Without it STARTTLS is used when the server offers it.
	SSL     bool
	Timeout time.Duration
}

// SMTPMailer sends each message over a fresh SMTP connection.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

func NewSMTPMailer(opts SMTPOptions) (*SMTPMailer, error) {
	if opts.From == "" {
		return nil, errors.New("mail sender address is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	clientOpts := []gomail.Option{
		gomail.WithPort(opts.Port),
		gomail.WithTimeout(timeout),
	}
	if opts.SSL {
		clientOpts = append(clientOpts, gomail.WithSSL())
	} else {
		clientOpts = append(clientOpts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(opts.Username),
			gomail.WithPassword(opts.Password),
		)
	}

	client, err := gomail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: opts.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (err error) {
	defer func() { observability.MailDeliveries.WithLabelValues(observability.ResultLabel(err)).Inc() }()

	out, err := m.build(msg)
	if err != nil {
		return err
	}
	if err = m.client.DialAndSendWithContext(ctx, out); err != nil {
		middleware.Logger.ErrorContext(ctx, "mail delivery failed", slog.String("to", msg.To), slog.String("error", err.Error()))
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

// LogMailer writes messages to the application log instead of sending them.
// It is used in development when no SMTP host is configured.
type LogMailer struct {
	from string
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient is required")
	}
	middleware.Logger.InfoContext(ctx, "mail not sent (no MAIL_HOST)",
		slog.String("from", m.from),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	observability.MailDeliveries.WithLabelValues("logged").Inc()
	return nil
}
