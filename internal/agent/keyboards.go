package agent

import (
	"fmt"
	"net/url"

	"github.com/go-telegram/bot/models"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard(miniAppBase string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🎬 Generate video", CallbackData: "generate"},
			},
			{
				{Text: "🏆 Leaderboard", URL: miniAppBase + "/leaderboard"},
				{Text: "📺 Video feed", URL: miniAppBase + "/"},
			},
			{
				{Text: "💼 Link wallet", CallbackData: "link_wallet"},
			},
		},
	}
}

// ShareKeyboard returns the keyboard shown after a video is delivered
func ShareKeyboard(miniAppBase, videoURL, castText string) *models.InlineKeyboardMarkup {
	shareURL := fmt.Sprintf("%s/post-video?url=%s&text=%s",
		miniAppBase, url.QueryEscape(videoURL), url.QueryEscape(castText))

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📤 Share to feed", URL: shareURL},
			},
			{
				{Text: "⬅️ Menu", CallbackData: "menu"},
			},
		},
	}
}

// PaymentKeyboard returns the payment keyboard with a transfer deep link
func PaymentKeyboard(transferLink string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💸 Pay with Tonkeeper", URL: transferLink},
			},
			{
				{Text: "🔄 Check payment", CallbackData: "check_payment"},
			},
			{
				{Text: "⬅️ Menu", CallbackData: "menu"},
			},
		},
	}
}

// CheckPaymentKeyboard returns keyboard for re-checking a payment
func CheckPaymentKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🔄 Check payment", CallbackData: "check_payment"},
			},
			{
				{Text: "⬅️ Menu", CallbackData: "menu"},
			},
		},
	}
}

// ProfileKeyboard returns the keyboard shown under /me
func ProfileKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💼 Unlink wallet", CallbackData: "unlink_wallet"},
			},
			{
				{Text: "⬅️ Menu", CallbackData: "menu"},
			},
		},
	}
}

// BackKeyboard returns a simple back button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ Menu", CallbackData: "menu"},
			},
		},
	}
}
