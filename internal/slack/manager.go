package slack

import (
	"context"
	"errors"
	"sync"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
)

// ErrNotConfigured is returned when Slack settings are missing or disabled
var ErrNotConfigured = errors.New("slack is not configured")

// Manager owns the Slack client and rebuilds it when settings change
type Manager struct {
	mu sync.RWMutex

	db      *gorm.DB
	logger  *zap.Logger
	options []slack.Option

	client   *slack.Client
	resolver *ChannelResolver
	channel  string

	reloadChan chan struct{}
}

// NewManager creates a new Slack manager. Extra options are passed to every
// client it builds.
func NewManager(db *gorm.DB, logger *zap.Logger, options ...slack.Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:         db,
		logger:     logger.Named("slack"),
		options:    options,
		reloadChan: make(chan struct{}, 1),
	}
}

// GetClient returns the current Slack client (may be nil if not configured)
func (m *Manager) GetClient() *slack.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// IsActive returns true when a client is configured
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start builds the client from the stored settings. Disabled settings are not an error.
func (m *Manager) Start(ctx context.Context) error {
	return m.Reload(ctx)
}

// Reload reads the settings again and swaps the client
func (m *Manager) Reload(ctx context.Context) error {
	settings, err := database.GetOrCreateSlackSettings(m.db.WithContext(ctx))
	if err != nil {
		m.logger.Warn("could not load Slack settings", zap.Error(err))
		m.Stop()
		return err
	}

	if !settings.IsActive() {
		m.logger.Info("Slack is disabled (not configured or not enabled)")
		m.Stop()
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	opts := append([]slack.Option{slack.OptionDebug(false)}, m.options...)
	m.client = slack.New(settings.BotToken, opts...)
	m.resolver = NewChannelResolver(m.client, m.logger)
	m.channel = settings.RegulatorChannel
	m.logger.Info("Slack integration is active", zap.String("channel", settings.RegulatorChannel))
	return nil
}

// Stop drops the current client
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = nil
	m.resolver = nil
	m.channel = ""
}

// TriggerReload signals that a reload is needed (non-blocking)
func (m *Manager) TriggerReload() {
	select {
	case m.reloadChan <- struct{}{}:
		m.logger.Debug("reload triggered")
	default:
		m.logger.Debug("reload already pending")
	}
}

// WatchForReloads runs a loop that watches for reload signals
func (m *Manager) WatchForReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.reloadChan:
			if err := m.Reload(ctx); err != nil {
				m.logger.Warn("reload failed", zap.Error(err))
			}
		}
	}
}

// NotifyRegulator posts text to the regulator channel
func (m *Manager) NotifyRegulator(ctx context.Context, text string) error {
	m.mu.RLock()
	client, resolver, channel := m.client, m.resolver, m.channel
	m.mu.RUnlock()

	if client == nil {
		return ErrNotConfigured
	}

	channelID, err := resolver.ResolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	_, _, err = client.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return err
	}
	return nil
}
