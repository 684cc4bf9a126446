package notify

import (
	"context"
	"fmt"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer sends one HTML email
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// NewMailer returns the SMTP mailer when configured, otherwise a mailer that only logs
func NewMailer(cfg *config.EmailConfig, logger *zap.Logger) (Mailer, error) {
	if cfg.Mode != "smtp" {
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer delivers through an SMTP relay
type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPMailer(cfg *config.EmailConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.FromAddress == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.FromAddress, fromName: cfg.FromName}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them (development)
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, html string) error {
	m.logger.Info("email (not sent, log mode)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("bytes", len(html)),
	)
	return nil
}
