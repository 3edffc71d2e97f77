package services

import (
	"context"
	"fmt"
	"strings"

	"civreg/internal/metrics"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) (Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &smtpMailer{client: client, from: cfg.From}, nil
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

// NewLogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email (smtp disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)))
	return nil
}

// NotificationService relays emails on a best-effort basis. Failures are logged
// and never returned, so callers cannot abort on them.
type NotificationService interface {
	Notify(ctx context.Context, to, subject, body string) bool
}

type notificationService struct {
	mailer Mailer
	logger *zap.Logger
}

func NewNotificationService(mailer Mailer, logger *zap.Logger) NotificationService {
	return &notificationService{mailer: mailer, logger: logger}
}

// Notify reports whether the message was handed to the mailer successfully.
// An empty recipient is skipped.
func (s *notificationService) Notify(ctx context.Context, to, subject, body string) bool {
	to = strings.TrimSpace(to)
	if to == "" {
		metrics.Notifications.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return false
	}

	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		metrics.Notifications.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.Warn("notification failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return false
	}

	metrics.Notifications.WithLabelValues(metrics.OutcomeSent).Inc()
	return true
}
