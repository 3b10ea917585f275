package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clipchain/sora-bot/internal/agent"
	"github.com/clipchain/sora-bot/internal/config"
	"github.com/clipchain/sora-bot/internal/paygate"
	"github.com/clipchain/sora-bot/internal/paywatch"
	"github.com/clipchain/sora-bot/internal/storage"
	"github.com/clipchain/sora-bot/internal/tonapi"
	"github.com/clipchain/sora-bot/internal/videogen"
	"github.com/clipchain/sora-bot/internal/webhook"
)

func main() {
	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	// Load config
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}
	if cfg.ServiceWalletAddr == "" {
		log.Warn("SERVICE_WALLET_ADDR not set, payments cannot be confirmed")
	}

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize TonAPI client
	tonAPI := tonapi.NewClient(cfg.TonAPIBaseURL, cfg.TonAPIKey)
	log.Info("tonapi client initialized", "base_url", cfg.TonAPIBaseURL)

	// Initialize fal.ai client
	video := videogen.NewClient(cfg.FalBaseURL, cfg.FalKey)
	log.Info("fal client initialized", "base_url", cfg.FalBaseURL)

	// Initialize payment gate with the persistent store, so paid but
	// unconsumed entitlements survive restarts
	gate := paygate.New(
		store.GateStore(log),
		tonapi.NormalizeAddress(cfg.ServiceWalletAddr),
		cfg.GenerationFeeMinor(),
	)

	// Initialize agent bot
	bot, err := agent.New(cfg, store, gate, tonAPI, video, log)
	if err != nil {
		log.Error("init agent bot", "error", err)
		os.Exit(1)
	}
	log.Info("agent bot initialized")

	// Initialize confirmation processor and watcher
	processor := paywatch.NewProcessor(cfg, store, gate, func(ctx context.Context, userID int64, identity string, res paygate.CorrelationResult) {
		if userID == 0 {
			return
		}
		bot.OnPaymentConfirmed(ctx, userID, identity, res)
	}, log)
	watcher := paywatch.NewWatcher(processor, tonAPI, log)

	// Initialize webhook manager
	webhookManager := webhook.NewManager(tonAPI, cfg.WebhookEndpoint, cfg.ServiceWalletAddr, log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize webhook
	if cfg.WebhookEndpoint != "" {
		if err := webhookManager.Init(ctx); err != nil {
			log.Error("init webhook", "error", err)
		} else {
			log.Info("webhook initialized", "endpoint", cfg.WebhookEndpoint)
		}
	}

	// Start webhook server
	webhookServer := webhook.NewServer(processor, tonAPI, cfg.ServiceWalletAddr, log)
	go func() {
		if err := webhookServer.Start(ctx, cfg.WebhookPort); err != nil && err != http.ErrServerClosed {
			log.Error("webhook server", "error", err)
		}
	}()

	// Start webhook sync loop
	go webhookManager.SyncLoop(ctx, 30*time.Second)

	// Seed processed events, then start the polling watcher
	if cfg.ServiceWalletAddr != "" {
		go func() {
			watcher.Seed(ctx, store)
			watcher.Start(ctx, time.Duration(cfg.PollInterval)*time.Second)
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	// Start bot polling
	log.Info("starting bot polling...")
	bot.Start(ctx)
}
