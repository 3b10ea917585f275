// Package paywatch turns on-chain service-wallet activity into payment
// confirmations for the gate. Transfers arrive both from the polling
// watcher and from the TonAPI webhook; both paths funnel through the
// Processor so each event is correlated at most once.
package paywatch

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/clipchain/sora-bot/internal/config"
	"github.com/clipchain/sora-bot/internal/paygate"
	"github.com/clipchain/sora-bot/internal/storage"
	"github.com/clipchain/sora-bot/internal/tonapi"
)

// memoRegex extracts the identity a payer named in the transfer comment,
// for payments sent from a wallet other than the linked one.
var memoRegex = regexp.MustCompile(`sora2:([0-9A-Za-z:_-]{20,})`)

// tgIDRegex is a last-resort match for users who wrote their Telegram ID
// in the comment instead.
var tgIDRegex = regexp.MustCompile(`(\d{5,15})`)

// Notifier is invoked for every correlated confirmation with the resolved
// chat user, or userID 0 when the payer could not be mapped to a user.
type Notifier func(ctx context.Context, userID int64, identity string, res paygate.CorrelationResult)

// Processor correlates incoming USDT transfers against the payment gate.
type Processor struct {
	cfg     *config.Config
	storage *storage.Storage
	gate    *paygate.Gate
	notify  Notifier
	log     *slog.Logger

	serviceWalletRaw string
	usdtMasterRaw    string
}

// NewProcessor creates a confirmation processor
func NewProcessor(cfg *config.Config, store *storage.Storage, gate *paygate.Gate, notify Notifier, log *slog.Logger) *Processor {
	return &Processor{
		cfg:              cfg,
		storage:          store,
		gate:             gate,
		notify:           notify,
		log:              log,
		serviceWalletRaw: tonapi.NormalizeAddress(cfg.ServiceWalletAddr),
		usdtMasterRaw:    tonapi.NormalizeAddress(cfg.USDTMasterAddr),
	}
}

// ProcessEvent inspects an account event for USDT transfers into the
// service wallet and feeds each one through the gate.
func (p *Processor) ProcessEvent(ctx context.Context, event *tonapi.Event) {
	for _, action := range event.Actions {
		if action.Type != "JettonTransfer" || action.JettonTransfer == nil {
			continue
		}

		jt := action.JettonTransfer

		if tonapi.NormalizeAddress(jt.Jetton.Address) != p.usdtMasterRaw {
			continue
		}
		if tonapi.NormalizeAddress(jt.Recipient.Address) != p.serviceWalletRaw {
			continue
		}

		// At most one correlation per confirmation event, even if the
		// watcher and the webhook both deliver it.
		isNew, err := p.storage.MarkConfirmationProcessed(event.EventID)
		if err != nil {
			p.log.Error("mark confirmation processed", "error", err)
			continue
		}
		if !isNew {
			p.log.Debug("confirmation already processed", "event_id", event.EventID)
			continue
		}

		p.handleTransfer(ctx, event.EventID, jt)
	}
}

func (p *Processor) handleTransfer(ctx context.Context, eventID string, jt *tonapi.JettonTransfer) {
	identity := tonapi.NormalizeAddress(jt.Sender.Address)
	if m := memoRegex.FindStringSubmatch(jt.Comment); len(m) > 1 {
		identity = tonapi.NormalizeAddress(m[1])
	}

	amount := tonapi.UnitsToMinor(jt.Amount, jt.Jetton.Decimals, config.USDTDecimals)

	conf := paygate.Confirmation{
		EventID: eventID,
		Amount:  amount,
		Sender:  jt.Sender.Address,
		Comment: jt.Comment,
	}

	res := p.gate.CorrelateConfirmation(conf, identity)
	if res.Kind == paygate.NotCorrelated {
		p.log.Debug("unrelated transfer",
			"event_id", eventID,
			"sender", tonapi.ShortAddr(jt.Sender.Address, 6),
			"amount_minor", amount,
		)
		return
	}

	p.log.Info("payment correlated",
		"event_id", eventID,
		"identity", tonapi.ShortAddr(identity, 6),
		"matcher", res.Matcher,
		"has_action", res.Kind == paygate.CorrelatedAction,
	)

	userID := p.resolveUser(identity, jt.Comment)
	if userID == 0 {
		p.log.Warn("payment from unknown payer",
			"identity", tonapi.ShortAddr(identity, 6),
			"event_id", eventID,
		)
	}

	p.notify(ctx, userID, identity, res)
}

func (p *Processor) resolveUser(identity, comment string) int64 {
	if userID, err := p.storage.GetUserByWallet(identity); err == nil {
		return userID
	}

	if m := tgIDRegex.FindStringSubmatch(comment); len(m) > 0 {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return id
		}
	}

	return 0
}
