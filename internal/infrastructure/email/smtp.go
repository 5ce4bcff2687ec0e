package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/gomail.v2"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/config"
)

var ErrEmailServiceNotConfigured = notification.ErrMailerNotConfigured

var _ notification.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends multipart mail through one SMTP relay. The plain-text part
// is derived from the HTML body.
type SMTPMailer struct {
	cfg    config.EmailConfig
	send   func(*gomail.Message) error
	strict *bluemonday.Policy
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return &SMTPMailer{
		cfg:    cfg,
		send:   func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		strict: bluemonday.StrictPolicy(),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if s.cfg.SMTPHost == "" {
		return ErrEmailServiceNotConfigured
	}
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.FromAddress, s.cfg.FromName))
	// Recipients of a group notification must not see each other.
	m.SetHeader("To", m.FormatAddress(s.cfg.FromAddress, s.cfg.FromName))
	m.SetHeader("Bcc", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.plainText(htmlBody))
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPMailer) plainText(htmlBody string) string {
	text := strings.NewReplacer("</p>", "</p>\n", "<br>", "\n", "<br/>", "\n", "</li>", "</li>\n").Replace(htmlBody)
	text = html.UnescapeString(s.strict.Sanitize(text))
	return strings.TrimSpace(text)
}
