package config

import (
	"math"
	"os"
	"strconv"
	"strings"
)

// USDTDecimals is the minor-unit precision of USDT on TON.
const USDTDecimals = 6

type Config struct {
	// Telegram
	BotToken    string
	BotUsername string

	// TonAPI
	TonAPIKey     string
	TonAPIBaseURL string

	// fal.ai
	FalKey     string
	FalBaseURL string

	// Payment
	ServiceWalletAddr string
	USDTMasterAddr    string
	GenerationFeeUSDT float64
	PollInterval      int // seconds

	// Webhook
	WebhookEndpoint string
	WebhookPort     int

	// Database
	DBPath string

	// Video output
	VideoResolution  string
	VideoAspectRatio string
	VideoDuration    int
	SampleVideoURL   string

	// Mini app
	MiniAppBaseURL string
}

func Load() *Config {
	return &Config{
		// Telegram
		BotToken:    getEnv("BOT_TOKEN", ""),
		BotUsername: getEnv("BOT_USERNAME", "sora_video_bot"),

		// TonAPI
		TonAPIKey:     getEnv("TONAPI_API_KEY", ""),
		TonAPIBaseURL: strings.TrimSuffix(getEnv("TONAPI_BASE_URL", "https://tonapi.io/v2"), "/"),

		// fal.ai
		FalKey:     getEnv("FAL_KEY", ""),
		FalBaseURL: strings.TrimSuffix(getEnv("FAL_BASE_URL", "https://queue.fal.run"), "/"),

		// Payment
		ServiceWalletAddr: getEnv("SERVICE_WALLET_ADDR", ""),
		USDTMasterAddr:    getEnv("USDT_MASTER_ADDR", "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"),
		GenerationFeeUSDT: getEnvFloat("GENERATION_FEE_USDT", 0.5),
		PollInterval:      getEnvInt("PAYMENT_POLL_INTERVAL", 10),

		// Webhook
		WebhookEndpoint: getEnv("WEBHOOK_ENDPOINT", ""),
		WebhookPort:     getEnvInt("WEBHOOK_PORT", 8080),

		// Database
		DBPath: getEnv("DB_PATH", "./sorabot.db"),

		// Video output
		VideoResolution:  getEnv("VIDEO_RESOLUTION", "720p"),
		VideoAspectRatio: getEnv("VIDEO_ASPECT_RATIO", "16:9"),
		VideoDuration:    getEnvInt("VIDEO_DURATION", 4),
		SampleVideoURL:   getEnv("SAMPLE_VIDEO_URL", "https://v3b.fal.media/files/b/tiger/49AK4V5zO6RkFNfI-wiHc_ype2StUS.mp4"),

		// Mini app
		MiniAppBaseURL: strings.TrimSuffix(getEnv("MINI_APP_BASE_URL", "https://new-mini-app-quickstart-pi-nine.vercel.app"), "/"),
	}
}

// GenerationFeeMinor returns the generation fee in USDT minor units.
func (c *Config) GenerationFeeMinor() int64 {
	return int64(math.Round(c.GenerationFeeUSDT * math.Pow10(USDTDecimals)))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
