// Package notify sends one-recipient mails for zone broadcasts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/config"
)

// ErrInvalidRecipient is returned for addresses that do not parse as RFC 5322
var ErrInvalidRecipient = errors.New("invalid recipient address")

// Mail is a single outbound message to one recipient
type Mail struct {
	FromAlias string
	To        string
	Subject   string
	Body      string
	ActorID   string
}

// Sender delivers a Mail. One call per recipient; no batching or BCC.
type Sender interface {
	Send(ctx context.Context, m Mail) error
}

// ValidateRecipient parses addr and returns the bare address
func ValidateRecipient(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecipient)
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, addr)
	}
	return parsed.Address, nil
}

// NewSender builds the sender selected by cfg.Provider
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp mail provider")
		}
		return NewSMTPSender(cfg), nil
	case "http":
		if cfg.APIURL == "" {
			return nil, errors.New("MAIL_API_URL is required for the http mail provider")
		}
		return NewHTTPSender(cfg, logger), nil
	case "", "log":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender writes mails to the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, m Mail) error {
	to, err := ValidateRecipient(m.To)
	if err != nil {
		return err
	}
	s.logger.Info("mail not sent, log provider active",
		zap.String("from_alias", m.FromAlias),
		zap.String("to", to),
		zap.String("subject", m.Subject),
		zap.String("actor_id", m.ActorID),
	)
	return nil
}
