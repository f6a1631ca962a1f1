package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP
	Port          int
	ScraperAPIKey string

	// Bot identity on the platform
	BotUserID string
	BotHandle string

	// Wallet daemon
	WalletRPCURL string
	WalletID     string

	// Intent extraction / responses
	OpenAIAPIKey string
	OpenAIModel  string

	// Reply publisher
	PublisherURL    string
	PublisherAPIKey string

	// Alerting
	AlertWebhookURL string

	// Limits
	TipsPerDay        int
	MessagesPerMinute int
	MessagesPerDay    int

	// Refunds
	RefundGracePeriod time.Duration
	SweepInterval     time.Duration
}

func Load() *Config {
	return &Config{
		Port:          getEnvInt("PORT", 8080),
		ScraperAPIKey: getEnv("SCRAPER_API_KEY", ""),

		BotUserID: getEnv("X_USER_ID", ""),
		BotHandle: getEnv("X_HANDLE", "NanoSprinkle"),

		WalletRPCURL: getEnv("PIPPIN_URL", "http://localhost:11338"),
		WalletID:     getEnv("WALLET", ""),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),

		PublisherURL:    getEnv("PUBLISHER_URL", ""),
		PublisherAPIKey: getEnv("PUBLISHER_API_KEY", ""),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),

		TipsPerDay:        getEnvInt("TIPS_PER_DAY", 5),
		MessagesPerMinute: getEnvInt("MESSAGES_PER_MINUTE", 3),
		MessagesPerDay:    getEnvInt("MESSAGES_PER_DAY", 50),

		RefundGracePeriod: getEnvDuration("REFUND_GRACE_PERIOD", 72*time.Hour),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Hour),
	}
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
