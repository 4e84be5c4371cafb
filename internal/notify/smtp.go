package notify

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/birokt/smittevern/internal/config"
)

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	cfg      config.MailConfig
	sendMail SendFunc
	now      func() time.Time
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail, now: time.Now}
}

// WithSendFunc replaces the transport, used in tests
func (s *SMTPSender) WithSendFunc(fn SendFunc) *SMTPSender {
	s.sendMail = fn
	return s
}

func (s *SMTPSender) Send(ctx context.Context, m Mail) error {
	to, err := ValidateRecipient(m.To)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.buildMessage(m, to)

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.sendMail(addr, auth, s.cfg.FromAddress, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(m Mail, to string) []byte {
	from := (&mail.Address{Name: m.FromAlias, Address: s.cfg.FromAddress}).String()

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	if m.ActorID != "" {
		fmt.Fprintf(&sb, "X-Actor-Id: %s\r\n", m.ActorID)
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(m.Body)
	return []byte(sb.String())
}
