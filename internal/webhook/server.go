package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipchain/sora-bot/internal/paywatch"
	"github.com/clipchain/sora-bot/internal/tonapi"
)

// Server handles incoming webhooks from TonAPI for the service wallet.
type Server struct {
	processor *paywatch.Processor
	tonAPI    *tonapi.Client
	log       *slog.Logger

	serviceWalletRaw string

	server *http.Server
}

// NewServer creates a new webhook server
func NewServer(processor *paywatch.Processor, tonAPI *tonapi.Client, serviceWalletAddr string, log *slog.Logger) *Server {
	return &Server{
		processor:        processor,
		tonAPI:           tonAPI,
		log:              log,
		serviceWalletRaw: tonapi.NormalizeAddress(serviceWalletAddr),
	}
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/webhook/", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting webhook server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	return s.server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload tonapi.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.log.Warn("invalid webhook payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Ignore mempool and new_contract events
	if payload.EventType == "mempool_msg" || payload.EventType == "new_contract" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if payload.AccountID == "" {
		s.log.Warn("missing account_id in webhook")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Only the service wallet is subscribed, anything else is noise.
	if tonapi.NormalizeAddress(payload.AccountID) != s.serviceWalletRaw {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.log.Debug("webhook received",
		"account", tonapi.ShortAddr(payload.AccountID, 6),
		"tx_hash", truncate(payload.TxHash, 10),
		"has_event", payload.Event != nil,
	)

	// Process asynchronously
	go s.processTransaction(context.Background(), payload)

	w.WriteHeader(http.StatusOK)
}

func (s *Server) processTransaction(ctx context.Context, payload tonapi.WebhookPayload) {
	// Get event (from payload or fetch)
	var event *tonapi.Event
	if payload.Event != nil {
		event = payload.Event
	} else if payload.TxHash != "" {
		var err error
		event, err = s.tonAPI.GetEventByHash(ctx, payload.TxHash)
		if err != nil {
			s.log.Warn("fetch event by hash", "error", err, "tx_hash", payload.TxHash)
			return
		}
	} else {
		s.log.Warn("no event data and no tx_hash")
		return
	}

	if event.EventID == "" {
		s.log.Warn("no event_id in event")
		return
	}

	s.processor.ProcessEvent(ctx, event)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
