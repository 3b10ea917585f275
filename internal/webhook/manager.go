package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clipchain/sora-bot/internal/tonapi"
)

// Manager keeps the TonAPI webhook pointed at our endpoint with the
// service wallet subscribed.
type Manager struct {
	tonAPI   *tonapi.Client
	endpoint string
	log      *slog.Logger

	serviceWalletRaw string

	mu         sync.Mutex
	webhookID  int64
	subscribed bool
}

// NewManager creates a new webhook manager
func NewManager(tonAPI *tonapi.Client, endpoint, serviceWalletAddr string, log *slog.Logger) *Manager {
	return &Manager{
		tonAPI:           tonAPI,
		endpoint:         endpoint,
		log:              log,
		serviceWalletRaw: tonapi.NormalizeAddress(serviceWalletAddr),
	}
}

// Init initializes the webhook, creating it if necessary
func (m *Manager) Init(ctx context.Context) error {
	if m.endpoint == "" {
		m.log.Warn("webhook endpoint not set, skipping webhook init")
		return nil
	}

	// List existing webhooks
	webhooks, err := m.tonAPI.ListWebhooks(ctx)
	if err != nil {
		return err
	}

	// Find or create webhook
	for _, wh := range webhooks {
		if wh.Endpoint == m.endpoint {
			m.webhookID = wh.ID
			for _, acc := range wh.Accounts {
				if tonapi.NormalizeAddress(acc) == m.serviceWalletRaw {
					m.subscribed = true
				}
			}
			m.log.Info("using existing webhook", "id", wh.ID)
			return nil
		}
	}

	// Create new webhook
	webhook, err := m.tonAPI.CreateWebhook(ctx, m.endpoint)
	if err != nil {
		return err
	}

	m.webhookID = webhook.ID
	m.log.Info("created new webhook", "id", webhook.ID)

	return nil
}

// SyncLoop periodically makes sure the service wallet subscription exists.
// TonAPI occasionally drops subscriptions, so this retries forever.
func (m *Manager) SyncLoop(ctx context.Context, interval time.Duration) {
	if m.endpoint == "" || m.serviceWalletRaw == "" {
		return
	}

	// Initial sync after delay
	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info("webhook sync loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.sync(ctx); err != nil {
				m.log.Error("sync subscription", "error", err)
			}
		}
	}
}

func (m *Manager) sync(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.webhookID == 0 || m.subscribed {
		return nil
	}

	if err := m.tonAPI.SubscribeAccounts(ctx, m.webhookID, []string{m.serviceWalletRaw}); err != nil {
		return err
	}

	m.subscribed = true
	m.log.Info("subscribed service wallet", "webhook_id", m.webhookID)
	return nil
}
