package paywatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/clipchain/sora-bot/internal/storage"
	"github.com/clipchain/sora-bot/internal/tonapi"
)

// Watcher polls the service wallet for new events. It backs up the webhook
// path: either one may see a confirmation first, the processed-confirmation
// mark keeps them from double-correlating.
type Watcher struct {
	processor *Processor
	tonAPI    *tonapi.Client
	log       *slog.Logger

	serviceWalletRaw string
}

// NewWatcher creates a service wallet watcher
func NewWatcher(processor *Processor, tonAPI *tonapi.Client, log *slog.Logger) *Watcher {
	return &Watcher{
		processor:        processor,
		tonAPI:           tonAPI,
		log:              log,
		serviceWalletRaw: processor.serviceWalletRaw,
	}
}

// Seed marks the service wallet's existing events as processed so old
// transfers are not replayed as fresh confirmations on startup.
func (w *Watcher) Seed(ctx context.Context, store *storage.Storage) {
	events, err := w.tonAPI.GetEvents(ctx, w.serviceWalletRaw, 20)
	if err != nil {
		w.log.Warn("fetch events for seeding", "error", err)
		return
	}

	seeded := 0
	for _, ev := range events {
		if ev.EventID == "" {
			continue
		}
		if isNew, _ := store.MarkConfirmationProcessed(ev.EventID); isNew {
			seeded++
		}
	}

	w.log.Info("seeding complete", "events_marked", seeded)
}

// Start starts the polling loop
func (w *Watcher) Start(ctx context.Context, interval time.Duration) {
	if w.serviceWalletRaw == "" {
		w.log.Info("payment watcher disabled: SERVICE_WALLET_ADDR not set")
		return
	}

	w.log.Info("payment watcher started",
		"service_wallet", tonapi.ShortAddr(w.serviceWalletRaw, 6),
		"interval", interval,
	)

	// Initial delay
	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				w.log.Error("check payments", "error", err)
			}
		}
	}
}

func (w *Watcher) check(ctx context.Context) error {
	events, err := w.tonAPI.GetEvents(ctx, w.serviceWalletRaw, 20)
	if err != nil {
		return err
	}

	for i := range events {
		w.processor.ProcessEvent(ctx, &events[i])
	}

	return nil
}
