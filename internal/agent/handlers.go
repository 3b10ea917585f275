package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/clipchain/sora-bot/internal/config"
	"github.com/clipchain/sora-bot/internal/paygate"
	"github.com/clipchain/sora-bot/internal/storage"
	"github.com/clipchain/sora-bot/internal/tonapi"
	"github.com/clipchain/sora-bot/internal/videogen"
)

var addrRegex = regexp.MustCompile(`(0:[0-9A-Za-z:_-]{20,}|[UE]Q[0-9A-Za-z:_-]{20,})`)

// progressEmoji marks a generation request as in progress. Removed on every
// completion path, success or failure.
const progressEmoji = "⚡"

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot     *bot.Bot
	cfg     *config.Config
	storage *storage.Storage
	gate    *paygate.Gate
	tonAPI  *tonapi.Client
	video   *videogen.Client
	states  *StateManager
	log     *slog.Logger
}

// New creates a new agent bot
func New(cfg *config.Config, store *storage.Storage, gate *paygate.Gate, tonAPI *tonapi.Client, video *videogen.Client, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		storage: store,
		gate:    gate,
		tonAPI:  tonAPI,
		video:   video,
		states:  NewStateManager(),
		log:     log,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/me", bot.MatchTypeExact, b.meHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/share", bot.MatchTypeExact, b.shareHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/top", bot.MatchTypeExact, b.topHandler)

	return b, nil
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, b.welcomeText(), MainKeyboard(b.cfg.MiniAppBaseURL))
}

func (b *Bot) welcomeText() string {
	return fmt.Sprintf(
		"🎬 Welcome to <b>Sora Video Bot</b>!\n\n"+
			"I turn text prompts into videos. Just type:\n"+
			"<code>@sora a cat playing with a ball of yarn</code>\n\n"+
			"Each generation costs <b>%.2f USDT</b> on TON, paid from your linked wallet.\n\n"+
			"Pick an action 👇",
		b.cfg.GenerationFeeUSDT,
	)
}

func (b *Bot) meHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID

	walletLine := "Wallet: <b>not linked</b>"
	creditLine := "Credit: <b>none</b>"

	wallet, err := b.storage.GetLinkedWallet(userID)
	if err == nil {
		walletLine = fmt.Sprintf("Wallet: <code>%s</code>", wallet.AddressDisplay)
		if b.gate.HasQualifyingPayment(wallet.AddressRaw) {
			creditLine = "Credit: <b>1 generation paid</b> ✅"
		}
	}

	count, _ := b.storage.CountVideos(userID)

	text := fmt.Sprintf(
		"👤 <b>Your profile</b>\n\n%s\n%s\nVideos generated: <b>%d</b>",
		walletLine, creditLine, count,
	)

	b.sendMessage(ctx, update.Message.Chat.ID, text, ProfileKeyboard())
}

func (b *Bot) topHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	top, err := b.storage.TopCreators(10)
	if err != nil {
		b.log.Error("top creators", "error", err)
		b.sendMessage(ctx, chatID, "❌ Couldn't load the leaderboard.", nil)
		return
	}
	if len(top) == 0 {
		b.sendMessage(ctx, chatID,
			"No videos yet. Be the first: <code>@sora your prompt</code>",
			MainKeyboard(b.cfg.MiniAppBaseURL),
		)
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Top creators</b>\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, st := range top {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s <a href=\"tg://user?id=%d\">creator</a> — %d videos\n", rank, st.UserID, st.VideoCount)
	}

	b.sendMessage(ctx, chatID, sb.String(), MainKeyboard(b.cfg.MiniAppBaseURL))
}

func (b *Bot) shareHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	last, err := b.storage.GetLastVideo(chatID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.log.Error("get last video", "error", err, "chat_id", chatID)
		}
		b.sendMessage(ctx, chatID,
			"No video in this chat yet. Generate one first with <code>@sora your prompt</code>.",
			MainKeyboard(b.cfg.MiniAppBaseURL),
		)
		return
	}

	castText := fmt.Sprintf("🎬 %s\n\n✨ Generated with AI on clipchain", last.Prompt)
	b.sendMessage(ctx, chatID,
		fmt.Sprintf("📤 Share your latest video:\n\n🎥 <i>%s</i>\n\n%s", last.Prompt, last.URL),
		ShareKeyboard(b.cfg.MiniAppBaseURL, last.URL, castText),
	)
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	text := strings.TrimSpace(msg.Text)

	if IsVideoRequest(text) {
		b.states.Clear(msg.From.ID)
		prompt, testMode := ExtractPrompt(text)
		b.handleVideoRequest(ctx, msg, prompt, testMode)
		return
	}

	state := b.states.Get(msg.From.ID)
	if state == nil {
		// Not a request and no conversation in progress: show the menu,
		// like the original agent does for unrecognized text.
		b.sendMessage(ctx, msg.Chat.ID, b.welcomeText(), MainKeyboard(b.cfg.MiniAppBaseURL))
		return
	}

	switch state.State {
	case StateWaitWallet:
		b.handleWaitWallet(ctx, msg, text)
	case StateWaitPrompt:
		b.states.Clear(msg.From.ID)
		prompt, testMode := ExtractPrompt(text)
		b.handleVideoRequest(ctx, msg, prompt, testMode)
	}
}

func (b *Bot) handleWaitWallet(ctx context.Context, msg *models.Message, text string) {
	userID := msg.From.ID

	addr := extractAddress(text)
	if addr == "" {
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ That doesn't look like a TON address. Try again.",
			nil,
		)
		return
	}

	info, err := b.tonAPI.GetAccountInfo(ctx, addr)
	if err != nil {
		b.log.Error("resolve address", "error", err)
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ Couldn't verify that address. Try again.",
			nil,
		)
		return
	}

	b.states.Clear(userID)

	if err := b.storage.LinkWallet(userID, info.Address, tonapi.RawToFriendly(info.Address)); err != nil {
		b.log.Error("link wallet", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Failed to link the wallet.", MainKeyboard(b.cfg.MiniAppBaseURL))
		return
	}

	b.log.Info("wallet linked", "user_id", userID, "address", info.Address)

	b.sendMessage(ctx, msg.Chat.ID,
		"✅ Wallet linked! Now type <code>@sora your prompt</code> to generate a video.",
		MainKeyboard(b.cfg.MiniAppBaseURL),
	)
}

// handleVideoRequest runs the gated generation flow for a chat message.
func (b *Bot) handleVideoRequest(ctx context.Context, msg *models.Message, prompt string, testMode bool) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Identity is the linked wallet. Without it nothing is recorded.
	wallet, err := b.storage.GetLinkedWallet(userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.log.Error("get linked wallet", "error", err, "user_id", userID)
		}
		b.states.Set(userID, StateWaitWallet, nil)
		b.sendMessage(ctx, chatID,
			"💼 I need your TON wallet before generating videos.\n\nSend me your wallet address:",
			BackKeyboard(),
		)
		return
	}
	identity := wallet.AddressRaw

	b.setReaction(ctx, chatID, msg.ID, progressEmoji)

	if prompt == "" {
		b.sendMessage(ctx, chatID,
			"Please describe the video you want. Example: <code>@sora A cat playing with a ball of yarn</code>",
			nil,
		)
		b.clearReaction(ctx, chatID, msg.ID)
		return
	}

	if b.gate.HasQualifyingPayment(identity) {
		b.log.Info("qualifying payment on record, generating",
			"user_id", userID,
			"identity", tonapi.ShortAddr(identity, 6),
		)
		b.deliver(ctx, chatID, msg.ID, userID, identity, prompt, testMode)
		return
	}

	pr, err := b.gate.BeginPaymentRequest(identity, prompt, testMode)
	if err != nil {
		b.log.Error("begin payment request", "error", err, "user_id", userID)
		b.sendMessage(ctx, chatID, "❌ Couldn't start the payment flow. Try again.", nil)
		b.clearReaction(ctx, chatID, msg.ID)
		return
	}

	link := tonapi.TransferLink(pr.Destination, b.cfg.USDTMasterAddr, pr.Amount, pr.Memo)

	b.log.Info("payment requested",
		"user_id", userID,
		"identity", tonapi.ShortAddr(identity, 6),
		"amount_minor", pr.Amount,
	)

	text := fmt.Sprintf(
		"🎬 Got your request: <i>%s</i>\n\n"+
			"💸 Generation costs <b>%s USDT</b>. Send it to:\n\n"+
			"<code>%s</code>\n\n"+
			"I'll start generating as soon as the payment lands — usually under a minute.",
		prompt,
		tonapi.MinorToHuman(pr.Amount, config.USDTDecimals),
		tonapi.RawToFriendly(pr.Destination),
	)
	b.sendMessage(ctx, chatID, text, PaymentKeyboard(link))
	b.clearReaction(ctx, chatID, msg.ID)
}

// deliveryClass is what happens after a generation attempt.
type deliveryClass int

const (
	deliverVideo deliveryClass = iota
	deliverSample
	promptRejected
	generatorBusy
	generationFailed
)

// deliveryOutcome classifies a generation error and decides whether the
// paid entry is spent. The entry is consumed only when the user got a
// video: a real one, or the sample fallback when our credentials are
// broken. Every other failure leaves the payment on record for a retry.
func deliveryOutcome(err error) (class deliveryClass, consume bool) {
	switch {
	case err == nil:
		return deliverVideo, true
	case videogen.IsAuthError(err):
		return deliverSample, true
	case videogen.IsValidationError(err):
		return promptRejected, false
	case videogen.IsRateLimited(err):
		return generatorBusy, false
	default:
		return generationFailed, false
	}
}

// deliver runs the deferred action and consumes the gate entry on delivery.
// msgID 0 means there is no triggering message to react on (payment
// confirmed asynchronously).
func (b *Bot) deliver(ctx context.Context, chatID int64, msgID int, userID int64, identity, prompt string, testMode bool) {
	defer b.clearReaction(ctx, chatID, msgID)

	if testMode {
		url := b.cfg.SampleVideoURL
		b.sendVideoResult(ctx, chatID, userID, prompt,
			fmt.Sprintf("🎬 Here's a preview of what your video will look like:\n\n%s", url), url)
		b.gate.Consume(identity)
		return
	}

	vid, err := b.video.Generate(ctx, prompt, videogen.Options{
		Resolution:  b.cfg.VideoResolution,
		AspectRatio: b.cfg.VideoAspectRatio,
		Duration:    b.cfg.VideoDuration,
	})

	class, consume := deliveryOutcome(err)

	switch class {
	case deliverVideo:
		b.log.Info("video generated", "user_id", userID, "video_id", vid.VideoID)
		b.sendVideoResult(ctx, chatID, userID, prompt,
			fmt.Sprintf("✅ Video generated!\n\n🎥 <i>%s</i>\n\n%s", prompt, vid.URL), vid.URL)

	case deliverSample:
		b.log.Error("generation auth failure, delivering sample", "error", err)
		url := b.cfg.SampleVideoURL
		b.sendVideoResult(ctx, chatID, userID, prompt,
			fmt.Sprintf("⚠️ Generation is temporarily degraded, here's a sample instead:\n\n%s\n\nYour payment has been applied.", url), url)

	case promptRejected:
		b.log.Warn("prompt rejected", "error", err, "user_id", userID)
		b.sendMessage(ctx, chatID,
			"❌ The model rejected this prompt. Rephrase it and try again — your payment is still on record.",
			nil,
		)

	case generatorBusy:
		b.log.Warn("generation rate limited", "error", err)
		b.sendMessage(ctx, chatID,
			"⏳ The generator is busy right now. Try again in a minute — your payment is still on record.",
			nil,
		)

	case generationFailed:
		b.log.Error("generate video", "error", err, "user_id", userID)
		b.sendMessage(ctx, chatID,
			"❌ Sorry, something went wrong while generating. Try again — your payment is still on record.",
			nil,
		)
	}

	if consume {
		b.gate.Consume(identity)
	}
}

func (b *Bot) sendVideoResult(ctx context.Context, chatID, userID int64, prompt, text, url string) {
	if _, err := b.storage.SaveVideo(userID, chatID, prompt, url); err != nil {
		b.log.Error("save video", "error", err)
	}

	castText := fmt.Sprintf("🎬 %s\n\n✨ Generated with AI on clipchain", prompt)
	b.sendMessage(ctx, chatID, text, ShareKeyboard(b.cfg.MiniAppBaseURL, url, castText))
}

// OnPaymentConfirmed handles a correlated on-chain confirmation for a user.
// Called by the payment watcher, off the chat update flow.
func (b *Bot) OnPaymentConfirmed(ctx context.Context, userID int64, identity string, res paygate.CorrelationResult) {
	switch res.Kind {
	case paygate.CorrelatedAction:
		b.sendMessage(ctx, userID,
			fmt.Sprintf("✅ Payment received! Generating your video now:\n\n<i>%s</i>\n\nThis can take a few minutes.", res.Action),
			nil,
		)
		b.deliver(ctx, userID, 0, userID, identity, res.Action, res.TestMode)

	case paygate.CorrelatedNoAction:
		b.sendMessage(ctx, userID,
			"✅ Payment received! You have one generation credited — type <code>@sora your prompt</code> to use it.",
			nil,
		)
	}
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	userID := cb.From.ID
	data := cb.Data

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch data {
	case "menu":
		b.states.Clear(userID)
		b.editMessage(ctx, cb.Message, b.welcomeText(), MainKeyboard(b.cfg.MiniAppBaseURL))
	case "generate":
		b.states.Set(userID, StateWaitPrompt, nil)
		b.editMessage(ctx, cb.Message,
			"🎬 Describe the video you want:\n\ne.g. <i>A robot dancing in a futuristic city</i>",
			BackKeyboard(),
		)
	case "link_wallet":
		b.states.Set(userID, StateWaitWallet, nil)
		b.editMessage(ctx, cb.Message,
			"💼 Send your TON wallet address\n(a tonviewer/tonscan link works too):",
			BackKeyboard(),
		)
	case "check_payment":
		b.handleCheckPayment(ctx, cb)
	case "unlink_wallet":
		if err := b.storage.UnlinkWallet(userID); err != nil {
			b.log.Error("unlink wallet", "error", err, "user_id", userID)
			break
		}
		b.editMessage(ctx, cb.Message,
			"💼 Wallet unlinked. Link a new one when you want to generate again.",
			MainKeyboard(b.cfg.MiniAppBaseURL),
		)
	default:
		b.log.Warn("unknown callback", "data", data, "user_id", userID)
	}
}

func (b *Bot) handleCheckPayment(ctx context.Context, cb *models.CallbackQuery) {
	userID := cb.From.ID

	wallet, err := b.storage.GetLinkedWallet(userID)
	if err != nil {
		b.editMessage(ctx, cb.Message,
			"💼 No wallet linked yet. Link one first 👇",
			MainKeyboard(b.cfg.MiniAppBaseURL),
		)
		return
	}

	if b.gate.HasQualifyingPayment(wallet.AddressRaw) {
		b.editMessage(ctx, cb.Message,
			"✅ <b>Payment confirmed!</b>\n\nType <code>@sora your prompt</code> to generate.",
			BackKeyboard(),
		)
		return
	}

	text := "🔍 <b>Checking your payment...</b>\n\n" +
		"If you just sent it, give the chain 10-30 seconds and press the button again."

	balance, err := b.tonAPI.GetJettonBalance(ctx, wallet.AddressRaw, b.cfg.USDTMasterAddr, config.USDTDecimals)
	if err != nil {
		b.log.Warn("jetton balance", "error", err)
	} else {
		text += fmt.Sprintf("\n\nYour wallet balance: <b>%s USDT</b>",
			tonapi.MinorToHuman(balance, config.USDTDecimals))
	}

	b.editMessage(ctx, cb.Message, text, CheckPaymentKeyboard())
}

// --- Helpers ---

func (b *Bot) setReaction(ctx context.Context, chatID int64, msgID int, emoji string) {
	if msgID == 0 {
		return
	}

	_, err := b.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatID,
		MessageID: msgID,
		Reaction: []models.ReactionType{
			{
				Type: models.ReactionTypeTypeEmoji,
				ReactionTypeEmoji: &models.ReactionTypeEmoji{
					Type:  "emoji",
					Emoji: emoji,
				},
			},
		},
	})
	if err != nil {
		b.log.Debug("set reaction", "error", err)
	}
}

func (b *Bot) clearReaction(ctx context.Context, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}

	_, err := b.bot.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
		ChatID:    chatID,
		MessageID: msgID,
		Reaction:  []models.ReactionType{},
	})
	if err != nil {
		b.log.Debug("clear reaction", "error", err)
	}
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

func extractAddress(text string) string {
	matches := addrRegex.FindStringSubmatch(text)
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
