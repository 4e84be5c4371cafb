package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/config"
)

type relayRequest struct {
	From     string `json:"from"`
	FromName string `json:"from_name"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	ActorID  string `json:"actor_id,omitempty"`
}

type relayResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HTTPSender posts mails to a transactional mail API
type HTTPSender struct {
	client *resty.Client
	from   string
	logger *zap.Logger
}

// NewHTTPSender creates a relay client. Failed sends are not retried.
func NewHTTPSender(cfg config.MailConfig, logger *zap.Logger) *HTTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &HTTPSender{client: client, from: cfg.FromAddress, logger: logger}
}

func (s *HTTPSender) Send(ctx context.Context, m Mail) error {
	to, err := ValidateRecipient(m.To)
	if err != nil {
		return err
	}

	var result relayResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(relayRequest{
			From:     s.from,
			FromName: m.FromAlias,
			To:       to,
			Subject:  m.Subject,
			Text:     m.Body,
			ActorID:  m.ActorID,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/send")
	if err != nil {
		return fmt.Errorf("failed to call mail API: %w", err)
	}
	if resp.IsError() {
		s.logger.Warn("mail API rejected message",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", result.Message),
		)
		return fmt.Errorf("mail API error: status %d: %s", resp.StatusCode(), result.Message)
	}

	s.logger.Debug("mail accepted by relay", zap.String("id", result.ID))
	return nil
}
